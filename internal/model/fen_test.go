package model

import (
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/require"
)

var notnilKinds = map[chess.PieceType]Kind{
	chess.King:   King,
	chess.Queen:  Queen,
	chess.Rook:   Rook,
	chess.Bishop: Bishop,
	chess.Knight: Knight,
	chess.Pawn:   Pawn,
}

// fromFEN loads a FEN through notnil/chess so fixtures are parsed by an
// independent implementation. Castling and en passant fields are ignored.
func fromFEN(t *testing.T, fen string) (*Position, *chess.Game) {
	t.Helper()
	opt, err := chess.FEN(fen)
	require.NoError(t, err)
	g := chess.NewGame(opt)

	toMove := White
	if g.Position().Turn() == chess.Black {
		toMove = Black
	}
	p := NewEmptyPosition(WhiteAtRowZero, toMove)
	for sq, pc := range g.Position().Board().SquareMap() {
		side := White
		if pc.Color() == chess.Black {
			side = Black
		}
		at := Square{Row: int(sq.Rank()), Col: int(sq.File())}
		require.NoError(t, p.Place(at, Piece{Side: side, Kind: notnilKinds[pc.Type()]}))
	}
	return p, g
}

// setup builds a position from piece placements like "Ke1" (White) or "ke8" (Black).
func setup(t *testing.T, o Orientation, toMove Side, placements ...string) *Position {
	t.Helper()
	p := NewEmptyPosition(o, toMove)
	for _, placement := range placements {
		require.Len(t, placement, 3, placement)
		side := White
		letter := placement[0]
		if letter >= 'a' {
			side = Black
			letter -= 'a' - 'A'
		}
		kind := map[byte]Kind{'P': Pawn, 'N': Knight, 'B': Bishop, 'R': Rook, 'Q': Queen, 'K': King}[letter]
		require.NotEqual(t, NoKind, kind, placement)
		sq, err := o.ParseSquare(placement[1:])
		require.NoError(t, err)
		require.NoError(t, p.Place(sq, Piece{Side: side, Kind: kind}))
	}
	return p
}

func sq(t *testing.T, o Orientation, name string) Square {
	t.Helper()
	s, err := o.ParseSquare(name)
	require.NoError(t, err)
	return s
}

func names(o Orientation, squares []Square) []string {
	out := make([]string, 0, len(squares))
	for _, s := range squares {
		out = append(out, o.SquareName(s))
	}
	return out
}
