package service

import (
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/engine"
	"github.com/benbeisheim/chess-engine-backend/internal/model"
	"github.com/benbeisheim/chess-engine-backend/internal/storage"
	"github.com/benbeisheim/chess-engine-backend/internal/ws"
)

// PlayerStore keeps per-player preferences and results.
type PlayerStore interface {
	ResultRecorder
	LoadPreferences(playerID string) (*storage.Preferences, error)
	SavePreferences(playerID string, prefs *storage.Preferences) error
	LoadStats(playerID string) (*storage.Stats, error)
}

// CreateGameRequest configures a new game. Fields left nil fall back to the
// creator's saved preferences.
type CreateGameRequest struct {
	Mode        model.GameMode     `json:"mode"`
	Difficulty  *engine.Difficulty `json:"difficulty"`
	Color       *model.Side        `json:"color"`
	Orientation *model.Orientation `json:"orientation"`
}

type GameService struct {
	gameManager *GameManager
	players     PlayerStore
}

func NewGameService(gameManager *GameManager, players PlayerStore) *GameService {
	return &GameService{
		gameManager: gameManager,
		players:     players,
	}
}

// CreateGame seats playerID in a new game and returns its ID and the
// creator's side. Against the engine the other seat is taken at once, and
// the engine moves first when the creator plays Black.
func (gs *GameService) CreateGame(playerID string, req CreateGameRequest) (string, model.Side, error) {
	prefs, err := gs.players.LoadPreferences(playerID)
	if err != nil {
		return "", model.White, errors.WithMessage(err, "load preferences")
	}
	orientation := prefs.Orientation
	if req.Orientation != nil {
		orientation = *req.Orientation
	}

	gameID := uuid.New().String()
	var game *model.Game
	switch req.Mode {
	case model.HumanVsEngine:
		difficulty := prefs.Difficulty
		if req.Difficulty != nil {
			difficulty = *req.Difficulty
		}
		side := prefs.Color
		if req.Color != nil {
			side = *req.Color
		}
		game = model.NewGame(gameID, model.HumanVsEngine, orientation, difficulty.String())
		if err := game.AddPlayerAs(playerID, side); err != nil {
			return "", side, err
		}
		if err := game.AddPlayerAs(model.EnginePlayerID, side.Opponent()); err != nil {
			return "", side, err
		}
		log.Infow("game created", "game", gameID, "player", playerID, "side", side, "difficulty", difficulty)
		gs.gameManager.AddGame(game)
		return gameID, side, nil
	default:
		game = model.NewGame(gameID, model.HumanVsHuman, orientation, "")
		side := model.White
		if req.Color != nil {
			side = *req.Color
			if err := game.AddPlayerAs(playerID, side); err != nil {
				return "", side, err
			}
		} else if side, err = game.AddPlayer(playerID); err != nil {
			return "", side, err
		}
		log.Infow("game created", "game", gameID, "player", playerID, "side", side)
		gs.gameManager.AddGame(game)
		return gameID, side, nil
	}
}

func (gs *GameService) JoinGame(gameID, playerID string) (model.Side, error) {
	return gs.gameManager.AddPlayerToGame(gameID, playerID)
}

func (gs *GameService) JoinMatchmaking(playerID string) error {
	return gs.gameManager.JoinMatchmaking(playerID)
}

func (gs *GameService) LeaveMatchmaking(playerID string) error {
	return gs.gameManager.LeaveMatchmaking(playerID)
}

func (gs *GameService) GetGameState(gameID string) (model.GameState, error) {
	return gs.gameManager.GetGameState(gameID)
}

func (gs *GameService) HandleMove(gameID, playerID string, move model.WSMove) error {
	return gs.gameManager.MakeMove(gameID, playerID, move)
}

// HandleNamedMove plays a move given as algebraic square names, read in the
// game's orientation.
func (gs *GameService) HandleNamedMove(gameID, playerID, from, to string, promotion model.Kind) error {
	o, err := gs.orientation(gameID)
	if err != nil {
		return err
	}
	fromSq, err := o.ParseSquare(from)
	if err != nil {
		return err
	}
	toSq, err := o.ParseSquare(to)
	if err != nil {
		return err
	}
	return gs.gameManager.MakeMove(gameID, playerID, model.WSMove{From: fromSq, To: toSq, Promotion: promotion})
}

func (gs *GameService) Resign(gameID, playerID string) error {
	return gs.gameManager.Resign(gameID, playerID)
}

func (gs *GameService) LegalDestinations(gameID string, sq model.Square) ([]model.Square, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	return game.LegalDestinations(sq)
}

// LegalDestinationNames is LegalDestinations with square names in and out.
func (gs *GameService) LegalDestinationNames(gameID, square string) ([]string, error) {
	o, err := gs.orientation(gameID)
	if err != nil {
		return nil, err
	}
	sq, err := o.ParseSquare(square)
	if err != nil {
		return nil, err
	}
	squares, err := gs.LegalDestinations(gameID, sq)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(squares))
	for _, s := range squares {
		names = append(names, o.SquareName(s))
	}
	return names, nil
}

func (gs *GameService) orientation(gameID string) (model.Orientation, error) {
	state, err := gs.gameManager.GetGameState(gameID)
	if err != nil {
		return model.WhiteAtRowZero, err
	}
	return state.Position.Orientation, nil
}

func (gs *GameService) GetPreferences(playerID string) (*storage.Preferences, error) {
	return gs.players.LoadPreferences(playerID)
}

func (gs *GameService) SavePreferences(playerID string, prefs *storage.Preferences) error {
	return gs.players.SavePreferences(playerID, prefs)
}

func (gs *GameService) GetStats(playerID string) (*storage.Stats, error) {
	return gs.players.LoadStats(playerID)
}

func (gs *GameService) RegisterConnection(gameID, playerID string, conn *websocket.Conn) error {
	return gs.gameManager.RegisterConnection(gameID, playerID, conn)
}

// Reply writes msg to one connection of gameID without interleaving it with
// state broadcasts.
func (gs *GameService) Reply(gameID string, conn *websocket.Conn, msg ws.Message) error {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return conn.WriteJSON(msg)
	}
	return game.WriteMessage(conn, msg)
}

func (gs *GameService) UnregisterConnection(gameID, playerID string, conn *websocket.Conn) {
	gs.gameManager.UnregisterConnection(gameID, playerID, conn)
}

func (gs *GameService) RegisterMatchmakingChannel(playerID string, ch chan ws.MatchFoundEvent) {
	gs.gameManager.RegisterMatchmakingChannel(playerID, ch)
}

func (gs *GameService) UnregisterMatchmakingChannel(playerID string, ch chan ws.MatchFoundEvent) {
	gs.gameManager.UnregisterMatchmakingChannel(playerID, ch)
}
