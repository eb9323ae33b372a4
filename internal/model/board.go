package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// BoardSize is the number of rows and columns on the board.
const BoardSize = 8

type Side int8

const (
	White Side = iota
	Black
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "white":
		*s = White
	case "black":
		*s = Black
	default:
		return errors.Errorf("unknown side %q", text)
	}
	return nil
}

// Kind is a piece kind. The zero value NoKind marks an empty square.
type Kind int8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"", "pawn", "knight", "bishop", "rook", "queen", "king"}

func (k Kind) String() string {
	if k < NoKind || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindNames[k]
}

func (k Kind) getPieceNotation() string {
	switch k {
	case King:
		return "K"
	case Queen:
		return "Q"
	case Rook:
		return "R"
	case Bishop:
		return "B"
	case Knight:
		return "N"
	}
	return ""
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range kindNames {
		if n == name {
			*k = Kind(i)
			return nil
		}
	}
	return errors.Errorf("unknown piece kind %q", text)
}

// Piece is the content of one square. The zero Piece is an empty square.
type Piece struct {
	Side Side `json:"color"`
	Kind Kind `json:"type"`
}

func (p Piece) IsEmpty() bool {
	return p.Kind == NoKind
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Side.String() + " " + p.Kind.String()
}

// Square addresses a board cell by row and column.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s Square) OnBoard() bool {
	return s.Row >= 0 && s.Row < BoardSize && s.Col >= 0 && s.Col < BoardSize
}

func (s Square) offset(d Square) Square {
	return Square{Row: s.Row + d.Row, Col: s.Col + d.Col}
}

func (s Square) String() string {
	return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
}

// Board is an 8x8 grid indexed [row][col]. It is a value: assigning a
// Board copies every square.
type Board [BoardSize][BoardSize]Piece

func (b *Board) at(sq Square) Piece {
	return b[sq.Row][sq.Col]
}

func (b *Board) set(sq Square, p Piece) {
	b[sq.Row][sq.Col] = p
}

// MarshalJSON renders empty squares as null.
func (b Board) MarshalJSON() ([]byte, error) {
	rows := make([][]*Piece, BoardSize)
	for r := 0; r < BoardSize; r++ {
		rows[r] = make([]*Piece, BoardSize)
		for c := 0; c < BoardSize; c++ {
			if p := b[r][c]; !p.IsEmpty() {
				rows[r][c] = &p
			}
		}
	}
	return json.Marshal(rows)
}

// Orientation fixes which side starts on row 0. It never changes during a game.
type Orientation int8

const (
	WhiteAtRowZero Orientation = iota
	BlackAtRowZero
)

func (o Orientation) String() string {
	if o == BlackAtRowZero {
		return "black-at-row-0"
	}
	return "white-at-row-0"
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "white-at-row-0", "":
		*o = WhiteAtRowZero
	case "black-at-row-0":
		*o = BlackAtRowZero
	default:
		return errors.Errorf("unknown orientation %q", text)
	}
	return nil
}

// HomeRow is the row holding a side's back-rank pieces at game start.
func (o Orientation) HomeRow(s Side) int {
	if (s == White) == (o == WhiteAtRowZero) {
		return 0
	}
	return BoardSize - 1
}

// Forward is the row delta of a pawn advance for side s.
func (o Orientation) Forward(s Side) int {
	if o.HomeRow(s) == 0 {
		return 1
	}
	return -1
}

func (o Orientation) PawnStartRow(s Side) int {
	return o.HomeRow(s) + o.Forward(s)
}

func (o Orientation) PromotionRow(s Side) int {
	return o.HomeRow(s.Opponent())
}

// SquareName returns the algebraic name of sq, files a-h running with the column.
func (o Orientation) SquareName(sq Square) string {
	if !sq.OnBoard() {
		return sq.String()
	}
	return fmt.Sprintf("%c%d", 'a'+sq.Col, o.rank(sq.Row))
}

func (o Orientation) fileName(sq Square) string {
	return fmt.Sprintf("%c", 'a'+sq.Col)
}

func (o Orientation) rank(row int) int {
	if o == WhiteAtRowZero {
		return row + 1
	}
	return BoardSize - row
}

// ParseSquare is the inverse of SquareName.
func (o Orientation) ParseSquare(name string) (Square, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return Square{}, errors.Wrapf(ErrInvalidSquare, "square %q", name)
	}
	col := int(name[0] - 'a')
	rank := int(name[1] - '0')
	row := rank - 1
	if o == BlackAtRowZero {
		row = BoardSize - rank
	}
	return Square{Row: row, Col: col}, nil
}

var backRank = [BoardSize]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Position is a board, the side to move and the orientation of the game.
type Position struct {
	Board       Board       `json:"board"`
	ToMove      Side        `json:"toMove"`
	Orientation Orientation `json:"orientation"`
}

// NewPosition returns the standard starting arrangement with White to move.
func NewPosition(o Orientation) *Position {
	p := NewEmptyPosition(o, White)
	for _, side := range []Side{White, Black} {
		home := o.HomeRow(side)
		pawns := o.PawnStartRow(side)
		for col := 0; col < BoardSize; col++ {
			p.Board[home][col] = Piece{Side: side, Kind: backRank[col]}
			p.Board[pawns][col] = Piece{Side: side, Kind: Pawn}
		}
	}
	return p
}

// NewEmptyPosition returns a position with no pieces, for custom setups.
func NewEmptyPosition(o Orientation, toMove Side) *Position {
	return &Position{ToMove: toMove, Orientation: o}
}

func (p *Position) Clone() *Position {
	c := *p
	return &c
}

func (p *Position) PieceAt(sq Square) (Piece, error) {
	if !sq.OnBoard() {
		return Piece{}, errors.Wrapf(ErrInvalidSquare, "square %v", sq)
	}
	return p.Board.at(sq), nil
}

// Place puts piece on sq, replacing whatever was there. Used to build positions.
func (p *Position) Place(sq Square, piece Piece) error {
	if !sq.OnBoard() {
		return errors.Wrapf(ErrInvalidSquare, "square %v", sq)
	}
	p.Board.set(sq, piece)
	return nil
}

func (p *Position) SwitchTurn() {
	p.ToMove = p.ToMove.Opponent()
}

// Squares returns the squares occupied by side in row-major order.
func (p *Position) Squares(side Side) []Square {
	var squares []Square
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if pc := p.Board[r][c]; !pc.IsEmpty() && pc.Side == side {
				squares = append(squares, Square{Row: r, Col: c})
			}
		}
	}
	return squares
}

func (p *Position) KingSquare(side Side) (Square, bool) {
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if p.Board[r][c] == (Piece{Side: side, Kind: King}) {
				return Square{Row: r, Col: c}, true
			}
		}
	}
	return Square{}, false
}

// ApplyMove moves the piece on from to to and returns the captured piece, if
// any. The move is not checked for legality and the side to move is not
// switched; callers query LegalDestinations first.
func (p *Position) ApplyMove(from, to Square) Piece {
	moving := p.Board.at(from)
	captured := p.Board.at(to)
	p.Board.set(to, moving)
	p.Board.set(from, Piece{})
	return captured
}

// ApplyLegalMove is ApplyMove guarded by the legality filter. The mover must
// be the side to move.
func (p *Position) ApplyLegalMove(from, to Square) (Piece, error) {
	piece, err := p.PieceAt(from)
	if err != nil {
		return Piece{}, err
	}
	if !to.OnBoard() {
		return Piece{}, errors.Wrapf(ErrInvalidSquare, "square %v", to)
	}
	if piece.IsEmpty() {
		return Piece{}, errors.Wrapf(ErrNoPieceAtSquare, "square %s", p.Orientation.SquareName(from))
	}
	if piece.Side != p.ToMove || !p.IsLegalMove(Move{From: from, To: to}) {
		return Piece{}, errors.Wrapf(ErrIllegalMove, "%s%s", p.Orientation.SquareName(from), p.Orientation.SquareName(to))
	}
	return p.ApplyMove(from, to), nil
}

// UndoMove reverses ApplyMove(from, to), restoring captured on to.
func (p *Position) UndoMove(from, to Square, captured Piece) {
	p.Board.set(from, p.Board.at(to))
	p.Board.set(to, captured)
}

// NeedsPromotion reports whether sq holds a pawn of side on its far row.
func (p *Position) NeedsPromotion(sq Square, side Side) bool {
	if !sq.OnBoard() {
		return false
	}
	return p.Board.at(sq) == Piece{Side: side, Kind: Pawn} && sq.Row == p.Orientation.PromotionRow(side)
}

// Promote replaces the pawn on sq with kind. It must be called before the
// side to move is switched.
func (p *Position) Promote(sq Square, kind Kind) error {
	piece, err := p.PieceAt(sq)
	if err != nil {
		return err
	}
	if piece.IsEmpty() {
		return errors.Wrapf(ErrNoPieceAtSquare, "square %s", p.Orientation.SquareName(sq))
	}
	switch kind {
	case Knight, Bishop, Rook, Queen:
	default:
		return errors.Wrapf(ErrNotPromotable, "cannot promote to %s", kind)
	}
	if !p.NeedsPromotion(sq, piece.Side) {
		return errors.Wrapf(ErrNotPromotable, "square %s", p.Orientation.SquareName(sq))
	}
	p.Board.set(sq, Piece{Side: piece.Side, Kind: kind})
	return nil
}

// String draws the board from White's side, rank 8 at the top. Upper case is White.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := BoardSize; rank >= 1; rank-- {
		r := rank - 1
		if p.Orientation == BlackAtRowZero {
			r = BoardSize - rank
		}
		for c := 0; c < BoardSize; c++ {
			sb.WriteByte(pieceChar(p.Board[r][c]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func pieceChar(pc Piece) byte {
	if pc.IsEmpty() {
		return '.'
	}
	ch := "?PNBRQK"[pc.Kind]
	if pc.Side == Black {
		ch += 'a' - 'A'
	}
	return ch
}
