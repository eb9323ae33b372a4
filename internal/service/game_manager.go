package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/engine"
	"github.com/benbeisheim/chess-engine-backend/internal/model"
	"github.com/benbeisheim/chess-engine-backend/internal/storage"
	"github.com/benbeisheim/chess-engine-backend/internal/ws"
)

// ResultRecorder receives the result of every finished game, once per human player.
type ResultRecorder interface {
	RecordGame(result storage.GameResult) error
}

type Options struct {
	EngineTimeout       time.Duration
	MatchmakingInterval time.Duration
}

// GameManager owns the running games and the matchmaking queue.
type GameManager struct {
	games            map[string]*model.Game
	recorded         map[string]bool
	queue            *model.Queue
	matchingChannels map[string]chan ws.MatchFoundEvent
	pendingMatches   map[string]ws.MatchFoundEvent
	mu               sync.RWMutex

	engine   *engine.Engine
	recorder ResultRecorder
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// lifeMu orders wg.Add against Close.
	lifeMu sync.Mutex
	closed bool
}

// NewGameManager starts the matchmaking processor. recorder may be nil.
func NewGameManager(eng *engine.Engine, recorder ResultRecorder, opts Options) *GameManager {
	if opts.EngineTimeout <= 0 {
		opts.EngineTimeout = 30 * time.Second
	}
	if opts.MatchmakingInterval <= 0 {
		opts.MatchmakingInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	gm := &GameManager{
		games:            make(map[string]*model.Game),
		recorded:         make(map[string]bool),
		queue:            model.NewQueue(),
		matchingChannels: make(map[string]chan ws.MatchFoundEvent),
		pendingMatches:   make(map[string]ws.MatchFoundEvent),
		engine:           eng,
		recorder:         recorder,
		opts:             opts,
		ctx:              ctx,
		cancel:           cancel,
	}

	gm.wg.Add(1)
	go gm.processMatchmaking()

	return gm
}

// Close stops matchmaking and waits for engine replies in flight.
func (gm *GameManager) Close() {
	gm.lifeMu.Lock()
	gm.closed = true
	gm.lifeMu.Unlock()

	gm.cancel()
	gm.wg.Wait()
}

// track registers a background task unless the manager is closed.
func (gm *GameManager) track() bool {
	gm.lifeMu.Lock()
	defer gm.lifeMu.Unlock()
	if gm.closed {
		return false
	}
	gm.wg.Add(1)
	return true
}

func (gm *GameManager) processMatchmaking() {
	defer gm.wg.Done()
	ticker := time.NewTicker(gm.opts.MatchmakingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
			gm.matchPlayers()
		}
	}
}

// matchPlayers pairs everyone waiting, longest waiting first. The first of
// each pair plays White.
func (gm *GameManager) matchPlayers() {
	for {
		queued1, queued2, ok := gm.queue.GetNextPair()
		if !ok {
			return
		}
		player1, player2 := queued1.Player, queued2.Player

		game := model.NewGame(uuid.New().String(), model.HumanVsHuman, model.WhiteAtRowZero, "")
		p1Side, err := game.AddPlayer(player1.ID)
		if err != nil {
			log.Errorw("seat matched player", "player", player1.ID, "err", err)
			continue
		}
		p2Side, err := game.AddPlayer(player2.ID)
		if err != nil {
			log.Errorw("seat matched player", "player", player2.ID, "err", err)
			continue
		}

		gm.mu.Lock()
		gm.games[game.ID] = game
		gm.notifyMatch(player1.ID, ws.MatchFoundEvent{GameID: game.ID, Color: p1Side.String()})
		gm.notifyMatch(player2.ID, ws.MatchFoundEvent{GameID: game.ID, Color: p2Side.String()})
		gm.mu.Unlock()
		log.Infow("match found", "game", game.ID, "white", player1.ID, "black", player2.ID,
			"waited", time.Since(queued1.JoinedAt).Round(time.Millisecond))
	}
}

// notifyMatch delivers event on the player's matchmaking channel, or keeps it
// until one is registered. Caller holds gm.mu.
func (gm *GameManager) notifyMatch(playerID string, event ws.MatchFoundEvent) {
	ch, ok := gm.matchingChannels[playerID]
	if !ok {
		gm.pendingMatches[playerID] = event
		return
	}
	delete(gm.matchingChannels, playerID)
	select {
	case ch <- event:
	default:
		log.Warnw("matchmaking channel full", "player", playerID)
		gm.pendingMatches[playerID] = event
	}
	close(ch)
}

// RegisterMatchmakingChannel subscribes ch to the player's next match. The
// manager closes ch after sending exactly one event on it, or when a newer
// channel replaces it.
func (gm *GameManager) RegisterMatchmakingChannel(playerID string, ch chan ws.MatchFoundEvent) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if existing, ok := gm.matchingChannels[playerID]; ok {
		delete(gm.matchingChannels, playerID)
		close(existing)
	}
	gm.matchingChannels[playerID] = ch
	if event, ok := gm.pendingMatches[playerID]; ok {
		delete(gm.pendingMatches, playerID)
		gm.notifyMatch(playerID, event)
	}
}

// UnregisterMatchmakingChannel drops ch and takes the player out of the queue.
// It is a no-op when ch has already been replaced or used.
func (gm *GameManager) UnregisterMatchmakingChannel(playerID string, ch chan ws.MatchFoundEvent) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if current, ok := gm.matchingChannels[playerID]; ok && current == ch {
		delete(gm.matchingChannels, playerID)
		close(ch)
		gm.queue.RemovePlayer(playerID)
	}
}

func (gm *GameManager) JoinMatchmaking(playerID string) error {
	return gm.queue.AddPlayer(model.Player{ID: playerID})
}

func (gm *GameManager) LeaveMatchmaking(playerID string) error {
	if !gm.queue.RemovePlayer(playerID) {
		return model.ErrNotQueued
	}
	return nil
}

// AddGame registers a configured game and starts the engine if it moves first.
func (gm *GameManager) AddGame(game *model.Game) {
	gm.mu.Lock()
	gm.games[game.ID] = game
	gm.mu.Unlock()
	gm.afterMove(game)
}

func (gm *GameManager) GetGame(gameID string) (*model.Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, errors.Wrapf(ErrGameNotFound, "game %s", gameID)
	}
	return game, nil
}

func (gm *GameManager) AddPlayerToGame(gameID, playerID string) (model.Side, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.White, err
	}
	return game.AddPlayer(playerID)
}

func (gm *GameManager) GetGameState(gameID string) (model.GameState, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return game.GetState(), nil
}

func (gm *GameManager) MakeMove(gameID, playerID string, move model.WSMove) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := game.MakeMove(playerID, move); err != nil {
		return err
	}
	gm.afterMove(game)
	return nil
}

func (gm *GameManager) Resign(gameID, playerID string) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := game.Resign(playerID); err != nil {
		return err
	}
	gm.afterMove(game)
	return nil
}

// afterMove records a finished game or hands the turn to the engine.
func (gm *GameManager) afterMove(game *model.Game) {
	if game.IsOver() {
		gm.recordResult(game)
		return
	}
	if game.EngineToMove() {
		gm.startEngineMove(game)
	}
}

// startEngineMove computes the engine's reply in the background. The reply
// is played only if nothing else changed the game meanwhile.
func (gm *GameManager) startEngineMove(game *model.Game) {
	pos, version := game.Position()
	d, err := engine.ParseDifficulty(game.GetState().Difficulty)
	if err != nil {
		log.Warnw("unknown difficulty, using medium", "game", game.ID, "err", err)
	}

	if !gm.track() {
		log.Debugw("manager closed, engine not started", "game", game.ID)
		return
	}
	go func() {
		defer gm.wg.Done()
		ctx, cancel := context.WithTimeout(gm.ctx, gm.opts.EngineTimeout)
		defer cancel()

		res, err := gm.engine.Think(ctx, pos, d)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			log.Warnw("engine timed out, playing a random move", "game", game.ID, "difficulty", d)
			res = gm.engine.Choose(pos, engine.Easy)
		case err != nil:
			return
		}
		if res.Move.IsNull() {
			return
		}

		if err := game.ApplyEngineMove(version, res.Move); err != nil {
			if errors.Is(err, model.ErrStaleMove) || errors.Is(err, model.ErrGameOver) {
				log.Debugw("engine reply discarded", "game", game.ID, "err", err)
				return
			}
			log.Errorw("engine move rejected", "game", game.ID, "move", res.Move.Name(pos.Orientation), "err", err)
			return
		}
		log.Debugw("engine moved", "game", game.ID, "move", res.Move.Name(pos.Orientation),
			"score", res.Score, "depth", res.Depth, "elapsed", res.Elapsed)
		gm.afterMove(game)
	}()
}

// recordResult stores the result for each human seat, once per game.
func (gm *GameManager) recordResult(game *model.Game) {
	gm.mu.Lock()
	if gm.recorded[game.ID] {
		gm.mu.Unlock()
		return
	}
	gm.recorded[game.ID] = true
	gm.mu.Unlock()

	state := game.GetState()
	winner := "none"
	if state.Resolve.Winner != nil {
		winner = state.Resolve.Winner.String()
	}
	log.Infow("game over", "game", game.ID, "reason", state.Resolve.Reason, "winner", winner)
	if gm.recorder == nil {
		return
	}
	for _, seat := range []model.ClientPlayer{state.Players.White, state.Players.Black} {
		if seat.ID == "" || seat.IsEngine {
			continue
		}
		result := storage.GameResult{
			PlayerID:   seat.ID,
			Draw:       state.Resolve.Winner == nil,
			Won:        state.Resolve.Winner != nil && *state.Resolve.Winner == seat.Color,
			Difficulty: state.Difficulty,
		}
		if err := gm.recorder.RecordGame(result); err != nil {
			log.Errorw("record game", "game", game.ID, "player", seat.ID, "err", err)
		}
	}
}

func (gm *GameManager) RegisterConnection(gameID, playerID string, conn *websocket.Conn) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	return game.RegisterConnection(playerID, conn)
}

func (gm *GameManager) UnregisterConnection(gameID, playerID string, conn *websocket.Conn) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return
	}
	game.UnregisterConnection(playerID, conn)
}
