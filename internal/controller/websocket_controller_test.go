package controller

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benbeisheim/chess-engine-backend/internal/model"
	"github.com/benbeisheim/chess-engine-backend/internal/ws"
)

func startServer(t *testing.T) (*fiber.App, string) {
	t.Helper()
	app := newTestAppWithInterval(t, 10*time.Millisecond)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })
	return app, ln.Addr().String()
}

func dial(t *testing.T, addr, path, playerID string) *fws.Conn {
	t.Helper()
	conn, resp, err := fws.DefaultDialer.Dial("ws://"+addr+path+"?playerId="+playerID, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func send(t *testing.T, conn *fws.Conn, typ ws.MessageType, payload interface{}) {
	t.Helper()
	msg, err := ws.NewMessage(typ, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil skips messages until one of type typ arrives.
func readUntil(t *testing.T, conn *fws.Conn, typ ws.MessageType) ws.Message {
	t.Helper()
	for {
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func readState(t *testing.T, conn *fws.Conn, version int) model.GameState {
	t.Helper()
	for {
		var state model.GameState
		require.NoError(t, json.Unmarshal(readUntil(t, conn, ws.MessageTypeGameState).Payload, &state))
		if state.Version >= version {
			return state
		}
	}
}

func readError(t *testing.T, conn *fws.Conn) string {
	t.Helper()
	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, ws.MessageTypeError).Payload, &payload))
	return payload.Error
}

func TestWebSocketGame(t *testing.T) {
	app, addr := startServer(t)

	status, body := do(t, app, http.MethodPost, "/api/game/create", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	gameID := body["game_id"].(string)
	status, _ = do(t, app, http.MethodPost, "/api/game/join/"+gameID, "bob", "")
	require.Equal(t, fiber.StatusOK, status)

	alice := dial(t, addr, "/ws/game/"+gameID, "alice")
	state := readState(t, alice, 0)
	assert.Equal(t, "alice", state.Players.White.ID)
	bob := dial(t, addr, "/ws/game/"+gameID, "bob")
	readState(t, bob, 0)

	e2, e3, e4 := model.Square{Row: 1, Col: 4}, model.Square{Row: 2, Col: 4}, model.Square{Row: 3, Col: 4}
	send(t, alice, ws.MessageTypeLegalMoves, legalMovesRequest{Square: e2})
	var legal legalMovesResponse
	require.NoError(t, json.Unmarshal(readUntil(t, alice, ws.MessageTypeLegalMoves).Payload, &legal))
	assert.Equal(t, e2, legal.Square)
	assert.ElementsMatch(t, []model.Square{e3, e4}, legal.Moves)

	send(t, alice, ws.MessageTypeMove, model.WSMove{From: e2, To: e4})
	for _, conn := range []*fws.Conn{alice, bob} {
		state = readState(t, conn, 1)
		assert.Equal(t, model.Black, state.ToMove)
		assert.Equal(t, "e4", state.MoveHistory[0].Notation)
	}

	send(t, alice, ws.MessageTypeMove, model.WSMove{From: model.Square{Row: 1, Col: 3}, To: model.Square{Row: 3, Col: 3}})
	assert.Contains(t, readError(t, alice), model.ErrNotYourTurn.Error())

	send(t, alice, ws.MessageTypeLegalMoves, legalMovesRequest{Square: model.Square{Row: 4, Col: 4}})
	assert.Contains(t, readError(t, alice), model.ErrNoPieceAtSquare.Error())

	require.NoError(t, alice.WriteMessage(fws.TextMessage, []byte("not json")))
	assert.Contains(t, readError(t, alice), "invalid request")

	send(t, alice, "castle", nil)
	assert.Contains(t, readError(t, alice), "unknown message type")

	require.NoError(t, bob.WriteJSON(ws.Message{Type: ws.MessageTypeMove, Payload: json.RawMessage(`{"from":"e7"}`)}))
	assert.Contains(t, readError(t, bob), "invalid request")

	send(t, bob, ws.MessageTypeResign, nil)
	for _, conn := range []*fws.Conn{alice, bob} {
		state = readState(t, conn, 2)
		require.NotNil(t, state.Resolve)
		assert.Equal(t, "resignation", state.Resolve.Reason)
		require.NotNil(t, state.Resolve.Winner)
		assert.Equal(t, model.White, *state.Resolve.Winner)
	}
}

func TestWebSocketUnknownGame(t *testing.T) {
	_, addr := startServer(t)

	conn := dial(t, addr, "/ws/game/missing", "alice")
	assert.Contains(t, readError(t, conn), "game not found")
}

func TestWebSocketMatchmaking(t *testing.T) {
	app, addr := startServer(t)

	alice := dial(t, addr, "/ws/matchmaking", "alice")
	bob := dial(t, addr, "/ws/matchmaking", "bob")

	var events []ws.MatchFoundEvent
	for _, conn := range []*fws.Conn{alice, bob} {
		var event ws.MatchFoundEvent
		require.NoError(t, json.Unmarshal(readUntil(t, conn, ws.MessageTypeMatchFound).Payload, &event))
		events = append(events, event)
	}
	require.NotEmpty(t, events[0].GameID)
	assert.Equal(t, events[0].GameID, events[1].GameID)
	assert.ElementsMatch(t, []string{"white", "black"}, []string{events[0].Color, events[1].Color})

	status, state := do(t, app, http.MethodGet, "/api/game/"+events[0].GameID, "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	players := state["players"].(map[string]interface{})
	assert.Equal(t, "alice", players[events[0].Color].(map[string]interface{})["name"])
	assert.Equal(t, "bob", players[events[1].Color].(map[string]interface{})["name"])
}

func TestWebSocketMatchmakingLeavesQueueOnClose(t *testing.T) {
	app, addr := startServer(t)

	carol := dial(t, addr, "/ws/matchmaking", "carol")
	require.Eventually(t, func() bool {
		status, _ := do(t, app, http.MethodPost, "/api/game/matchmaking/join", "carol", "")
		return status == fiber.StatusConflict
	}, 5*time.Second, 10*time.Millisecond, "the socket queues its player")

	require.NoError(t, carol.Close())
	require.Eventually(t, func() bool {
		status, _ := do(t, app, http.MethodPost, "/api/game/matchmaking/join", "carol", "")
		return status == fiber.StatusOK
	}, 5*time.Second, 10*time.Millisecond, "closing the socket leaves the queue")
}
