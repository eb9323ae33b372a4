package controller

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/middleware"
	"github.com/benbeisheim/chess-engine-backend/internal/model"
	"github.com/benbeisheim/chess-engine-backend/internal/service"
	"github.com/benbeisheim/chess-engine-backend/internal/ws"
)

type WebSocketController struct {
	gameService *service.GameService
}

func NewWebSocketController(gameService *service.GameService) *WebSocketController {
	return &WebSocketController{
		gameService: gameService,
	}
}

type legalMovesRequest struct {
	Square model.Square `json:"square"`
}

type legalMovesResponse struct {
	Square model.Square   `json:"square"`
	Moves  []model.Square `json:"moves"`
}

// HandleConnection serves one player's connection to a game until it closes.
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID := c.Params("gameId")
	playerID, _ := c.Locals(middleware.PlayerIDKey).(string)

	if err := wsc.gameService.RegisterConnection(gameID, playerID, c); err != nil {
		log.Warnw("register connection", "game", gameID, "player", playerID, "err", err)
		wsc.sendError(gameID, c, err)
		c.Close()
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, playerID, c)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnw("read", "game", gameID, "player", playerID, "err", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			wsc.sendError(gameID, c, errors.Wrap(service.ErrInvalidRequest, err.Error()))
			continue
		}
		if err := wsc.handleMessage(gameID, playerID, c, msg); err != nil {
			log.Debugw("message rejected", "game", gameID, "player", playerID, "type", msg.Type, "err", err)
			wsc.sendError(gameID, c, err)
		}
	}
}

func (wsc *WebSocketController) handleMessage(gameID, playerID string, c *websocket.Conn, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var move model.WSMove
		if err := json.Unmarshal(msg.Payload, &move); err != nil {
			return errors.Wrap(service.ErrInvalidRequest, err.Error())
		}
		return wsc.gameService.HandleMove(gameID, playerID, move)

	case ws.MessageTypeLegalMoves:
		var req legalMovesRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return errors.Wrap(service.ErrInvalidRequest, err.Error())
		}
		moves, err := wsc.gameService.LegalDestinations(gameID, req.Square)
		if err != nil {
			return err
		}
		reply, err := ws.NewMessage(ws.MessageTypeLegalMoves, legalMovesResponse{Square: req.Square, Moves: moves})
		if err != nil {
			return err
		}
		return wsc.gameService.Reply(gameID, c, reply)

	case ws.MessageTypeResign:
		return wsc.gameService.Resign(gameID, playerID)

	default:
		return errors.Wrapf(service.ErrInvalidRequest, "unknown message type %q", msg.Type)
	}
}

func (wsc *WebSocketController) sendError(gameID string, c *websocket.Conn, err error) {
	msg, merr := ws.NewMessage(ws.MessageTypeError, ws.ErrorPayload{Error: err.Error()})
	if merr != nil {
		return
	}
	if werr := wsc.gameService.Reply(gameID, c, msg); werr != nil {
		log.Debugw("send error", "game", gameID, "err", werr)
	}
}

// HandleMatchmaking queues the player and holds the connection open until a
// match is found or the client goes away.
func (wsc *WebSocketController) HandleMatchmaking(c *websocket.Conn) {
	playerID, _ := c.Locals(middleware.PlayerIDKey).(string)

	events := make(chan ws.MatchFoundEvent, 1)
	wsc.gameService.RegisterMatchmakingChannel(playerID, events)
	defer wsc.gameService.UnregisterMatchmakingChannel(playerID, events)

	if err := wsc.gameService.JoinMatchmaking(playerID); err != nil && !errors.Is(err, model.ErrAlreadyQueued) {
		wsc.sendError("", c, err)
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case event, ok := <-events:
		if !ok {
			return
		}
		msg, err := ws.NewMessage(ws.MessageTypeMatchFound, event)
		if err != nil {
			log.Errorw("encode match", "player", playerID, "err", err)
			return
		}
		if err := c.WriteJSON(msg); err != nil {
			log.Warnw("send match", "player", playerID, "game", event.GameID, "err", err)
		}
	case <-gone:
	}
}
