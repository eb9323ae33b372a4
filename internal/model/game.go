package model

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/ws"
)

type GameMode int8

const (
	HumanVsHuman GameMode = iota
	HumanVsEngine
)

func (m GameMode) String() string {
	if m == HumanVsEngine {
		return "engine"
	}
	return "human"
}

func (m GameMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *GameMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "human", "":
		*m = HumanVsHuman
	case "engine":
		*m = HumanVsEngine
	default:
		return errors.Errorf("unknown game mode %q", text)
	}
	return nil
}

// The connections for a specific game
type GameConnections struct {
	connections map[string]*websocket.Conn // playerID -> connection
	mu          sync.RWMutex
	writeMu     sync.Mutex
	sentVersion int // guarded by writeMu
}

// admit reports whether a state at version may still be sent. States are
// broadcast from their own goroutines, so one may arrive after a newer one.
// Caller holds writeMu.
func (gc *GameConnections) admit(version int) bool {
	if version < gc.sentVersion {
		return false
	}
	gc.sentVersion = version
	return true
}

// Game owns one position and the players and observers around it.
type Game struct {
	ID          string
	mu          sync.Mutex
	position    *Position
	state       GameState
	connections *GameConnections
}

type GameState struct {
	Sound          string         `json:"sound"`
	Position       Position       `json:"position"`
	ToMove         Side           `json:"toMove"`
	Status         Status         `json:"status"`
	MoveHistory    []Ply          `json:"moveHistory"`
	CapturedPieces CapturedPieces `json:"capturedPieces"`
	IsCheck        bool           `json:"isCheck"`
	Resolve        *Result        `json:"resolve"`
	Players        struct {
		White ClientPlayer `json:"white"`
		Black ClientPlayer `json:"black"`
	} `json:"players"`
	Mode       GameMode `json:"mode"`
	Difficulty string   `json:"difficulty,omitempty"`
	LastMove   *Move    `json:"lastMove"`
	Version    int      `json:"version"`
}

// Result describes how a game ended. Winner is nil for a draw.
type Result struct {
	Reason string `json:"reason"`
	Winner *Side  `json:"winner"`
}

// CapturedPieces lists the pieces each side has taken.
type CapturedPieces struct {
	White []Piece `json:"white"`
	Black []Piece `json:"black"`
}

func NewGame(id string, mode GameMode, orientation Orientation, difficulty string) *Game {
	g := &Game{
		ID:          id,
		position:    NewPosition(orientation),
		connections: NewGameConnections(),
	}
	g.state = GameState{
		MoveHistory: make([]Ply, 0),
		CapturedPieces: CapturedPieces{
			White: make([]Piece, 0),
			Black: make([]Piece, 0),
		},
		Mode: mode,
	}
	g.state.Players.White.Color = White
	g.state.Players.Black.Color = Black
	if mode == HumanVsEngine {
		g.state.Difficulty = difficulty
	}
	g.syncPosition()
	return g
}

func NewGameConnections() *GameConnections {
	return &GameConnections{
		connections: make(map[string]*websocket.Conn),
	}
}

// AddPlayer seats playerID on the first free side, White first.
func (g *Game) AddPlayer(playerID string) (Side, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if side, ok := g.sideOf(playerID); ok {
		return side, nil
	}
	for _, side := range []Side{White, Black} {
		if !g.seat(side).seated() {
			g.seat(side).ID = playerID
			log.Debugw("player seated", "game", g.ID, "player", playerID, "side", side)
			return side, nil
		}
	}
	return White, ErrGameFull
}

// AddPlayerAs seats playerID on side.
func (g *Game) AddPlayerAs(playerID string, side Side) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if seat := g.seat(side); seat.seated() && seat.ID != playerID {
		return errors.Wrapf(ErrGameFull, "%s is taken", side)
	}
	g.seat(side).ID = playerID
	g.seat(side).IsEngine = playerID == EnginePlayerID
	return nil
}

func (g *Game) seat(side Side) *ClientPlayer {
	if side == Black {
		return &g.state.Players.Black
	}
	return &g.state.Players.White
}

func (g *Game) sideOf(playerID string) (Side, bool) {
	if playerID == "" {
		return White, false
	}
	for _, side := range []Side{White, Black} {
		if g.seat(side).ID == playerID {
			return side, true
		}
	}
	return White, false
}

// GetState returns a snapshot that shares no slices with the game.
func (g *Game) GetState() GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

func (g *Game) snapshot() GameState {
	s := g.state
	s.MoveHistory = append(make([]Ply, 0, len(g.state.MoveHistory)), g.state.MoveHistory...)
	s.CapturedPieces.White = append(make([]Piece, 0, len(g.state.CapturedPieces.White)), g.state.CapturedPieces.White...)
	s.CapturedPieces.Black = append(make([]Piece, 0, len(g.state.CapturedPieces.Black)), g.state.CapturedPieces.Black...)
	return s
}

// Position returns a copy of the current position and its version.
func (g *Game) Position() (*Position, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position.Clone(), g.state.Version
}

func (g *Game) IsPlayerInGame(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.sideOf(playerID)
	return ok
}

func (g *Game) canSpectate() bool {
	return !g.state.Players.White.seated() || !g.state.Players.Black.seated()
}

func (g *Game) IsOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Resolve != nil
}

// EngineToMove reports whether the engine holds the seat of the side to move.
func (g *Game) EngineToMove() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Resolve == nil && g.seat(g.position.ToMove).IsEngine
}

// LegalDestinations lists the legal destinations of the piece on sq.
func (g *Game) LegalDestinations(sq Square) ([]Square, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	piece, err := g.position.PieceAt(sq)
	if err != nil {
		return nil, err
	}
	if piece.IsEmpty() {
		return nil, errors.Wrapf(ErrNoPieceAtSquare, "square %s", g.position.Orientation.SquareName(sq))
	}
	return g.position.LegalDestinations(sq), nil
}

// MakeMove validates and plays a move for playerID.
func (g *Game) MakeMove(playerID string, move WSMove) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Resolve != nil {
		return ErrGameOver
	}
	side, ok := g.sideOf(playerID)
	if !ok {
		return ErrNotInGame
	}
	if side != g.position.ToMove {
		return ErrNotYourTurn
	}
	if err := g.executeMove(Move{From: move.From, To: move.To}, move.Promotion); err != nil {
		return err
	}
	log.Debugw("move played", "game", g.ID, "player", playerID, "ply", g.lastPly().Notation)
	go g.broadcastState(g.snapshot())
	return nil
}

// ApplyEngineMove plays an engine reply computed at version. A reply for an
// older version is stale and rejected.
func (g *Game) ApplyEngineMove(version int, m Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Resolve != nil {
		return ErrGameOver
	}
	if version != g.state.Version {
		return errors.Wrapf(ErrStaleMove, "computed at %d, game at %d", version, g.state.Version)
	}
	if !g.seat(g.position.ToMove).IsEngine {
		return ErrNotYourTurn
	}
	if err := g.executeMove(m, Queen); err != nil {
		return err
	}
	go g.broadcastState(g.snapshot())
	return nil
}

// Resign ends the game in favour of playerID's opponent.
func (g *Game) Resign(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Resolve != nil {
		return ErrGameOver
	}
	side, ok := g.sideOf(playerID)
	if !ok {
		return ErrNotInGame
	}
	winner := side.Opponent()
	g.state.Resolve = &Result{Reason: "resignation", Winner: &winner}
	g.state.Sound = "gameOver"
	g.state.Version++
	go g.broadcastState(g.snapshot())
	return nil
}

func (g *Game) executeMove(m Move, promotion Kind) error {
	pos := g.position
	mover := pos.ToMove
	if !m.From.OnBoard() || !m.To.OnBoard() {
		return errors.Wrapf(ErrInvalidSquare, "move %v-%v", m.From, m.To)
	}
	piece := pos.Board.at(m.From)
	notation := g.getNotation(m)

	captured, err := pos.ApplyLegalMove(m.From, m.To)
	if err != nil {
		return err
	}

	ply := Ply{Side: mover, Piece: piece, From: m.From, To: m.To, Notation: notation}
	// g.state is untouched until the promotion, the last step that can fail.
	if pos.NeedsPromotion(m.To, mover) {
		if promotion == NoKind {
			promotion = Queen
		}
		if err := pos.Promote(m.To, promotion); err != nil {
			pos.UndoMove(m.From, m.To, captured)
			return err
		}
		ply.Promotion = promotion
		ply.Notation += "=" + promotion.getPieceNotation()
	}

	g.state.Sound = "move"
	if !captured.IsEmpty() {
		c := captured
		ply.CapturedPiece = &c
		g.state.Sound = "capture"
		if mover == White {
			g.state.CapturedPieces.White = append(g.state.CapturedPieces.White, captured)
		} else {
			g.state.CapturedPieces.Black = append(g.state.CapturedPieces.Black, captured)
		}
	}

	pos.SwitchTurn()
	status := pos.Status(pos.ToMove)
	switch status {
	case Checkmate:
		ply.Notation += "#"
		g.state.Resolve = &Result{Reason: "checkmate", Winner: &mover}
		g.state.Sound = "gameOver"
	case Stalemate:
		g.state.Resolve = &Result{Reason: "stalemate"}
		g.state.Sound = "gameOver"
	case Check:
		ply.Notation += "+"
		g.state.Sound = "check"
	}

	g.state.MoveHistory = append(g.state.MoveHistory, ply)
	g.state.Status = status
	g.state.IsCheck = status == Check || status == Checkmate
	g.state.LastMove = &Move{From: m.From, To: m.To}
	g.state.Version++
	g.syncPosition()
	return nil
}

func (g *Game) syncPosition() {
	g.state.Position = *g.position
	g.state.ToMove = g.position.ToMove
}

func (g *Game) lastPly() Ply {
	if len(g.state.MoveHistory) == 0 {
		return Ply{}
	}
	return g.state.MoveHistory[len(g.state.MoveHistory)-1]
}

// getNotation renders short algebraic notation without check suffixes,
// which executeMove appends once the reply position is known.
func (g *Game) getNotation(m Move) string {
	o := g.position.Orientation
	piece := g.position.Board.at(m.From)
	pieceNotationPrefix := piece.Kind.getPieceNotation()
	pieceNotationCapture := ""
	if !g.position.Board.at(m.To).IsEmpty() {
		pieceNotationCapture = "x"
	}
	fromSpecifier := ""
	if piece.Kind == Pawn && m.From.Col != m.To.Col {
		fromSpecifier = o.fileName(m.From)
	} else if piece.Kind != Pawn && piece.Kind != King {
		fromSpecifier = g.disambiguation(m, piece)
	}
	return fmt.Sprintf("%s%s%s%s", pieceNotationPrefix, fromSpecifier, pieceNotationCapture, o.SquareName(m.To))
}

// disambiguation names the file, rank or square of m.From when another piece
// like the moving one can also reach m.To.
func (g *Game) disambiguation(m Move, piece Piece) string {
	o := g.position.Orientation
	var rivals []Square
	for _, sq := range g.position.Squares(piece.Side) {
		if sq == m.From || g.position.Board.at(sq) != piece {
			continue
		}
		for _, dest := range g.position.LegalDestinations(sq) {
			if dest == m.To {
				rivals = append(rivals, sq)
				break
			}
		}
	}
	if len(rivals) == 0 {
		return ""
	}
	sameFile, sameRank := false, false
	for _, sq := range rivals {
		sameFile = sameFile || sq.Col == m.From.Col
		sameRank = sameRank || sq.Row == m.From.Row
	}
	switch {
	case !sameFile:
		return o.fileName(m.From)
	case !sameRank:
		return fmt.Sprintf("%d", o.rank(m.From.Row))
	}
	return o.SquareName(m.From)
}

func (g *Game) RegisterConnection(playerID string, conn *websocket.Conn) error {
	g.mu.Lock()
	isAuthorized := g.isPlayerInGameLocked(playerID) || g.canSpectate()
	state := g.snapshot()
	g.mu.Unlock()

	if !isAuthorized {
		return errors.New("not authorized to join this game")
	}

	g.connections.mu.Lock()
	if _, exists := g.connections.connections[playerID]; exists {
		g.connections.mu.Unlock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Connection already exists"),
		)
		conn.Close()
		return nil
	}
	g.connections.connections[playerID] = conn
	g.connections.mu.Unlock()
	log.Debugw("connection registered", "game", g.ID, "player", playerID)

	go g.broadcastState(state)
	return nil
}

func (g *Game) isPlayerInGameLocked(playerID string) bool {
	_, ok := g.sideOf(playerID)
	return ok
}

func (g *Game) UnregisterConnection(playerID string, conn *websocket.Conn) {
	g.connections.mu.Lock()
	defer g.connections.mu.Unlock()

	// Only unregister if this is still the current connection
	if current, exists := g.connections.connections[playerID]; exists && current == conn {
		delete(g.connections.connections, playerID)
		log.Debugw("connection unregistered", "game", g.ID, "player", playerID)
	}
}

// WriteMessage sends msg on conn in turn with the game's broadcasts.
func (g *Game) WriteMessage(conn *websocket.Conn, msg ws.Message) error {
	g.connections.writeMu.Lock()
	defer g.connections.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (g *Game) broadcastState(state GameState) {
	payload, err := json.Marshal(state)
	if err != nil {
		log.Errorw("marshal game state", "game", g.ID, "err", err)
		return
	}

	g.connections.mu.RLock()
	activeConnections := make(map[string]*websocket.Conn, len(g.connections.connections))
	for playerID, conn := range g.connections.connections {
		activeConnections[playerID] = conn
	}
	g.connections.mu.RUnlock()

	g.connections.writeMu.Lock()
	defer g.connections.writeMu.Unlock()
	if !g.connections.admit(state.Version) {
		log.Debugw("dropped stale state", "game", g.ID, "version", state.Version)
		return
	}
	for playerID, conn := range activeConnections {
		if err := conn.WriteJSON(ws.Message{Type: ws.MessageTypeGameState, Payload: payload}); err != nil {
			log.Warnw("send state failed", "game", g.ID, "player", playerID, "err", err)
			g.UnregisterConnection(playerID, conn)
		}
	}
}
