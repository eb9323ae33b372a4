package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benbeisheim/chess-engine-backend/internal/engine"
	"github.com/benbeisheim/chess-engine-backend/internal/model"
	"github.com/benbeisheim/chess-engine-backend/internal/service"
	"github.com/benbeisheim/chess-engine-backend/internal/storage"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	return newTestAppWithInterval(t, time.Hour)
}

func newTestAppWithInterval(t *testing.T, matchmaking time.Duration) *fiber.App {
	t.Helper()
	store, err := storage.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gm := service.NewGameManager(
		engine.New(engine.WithSeed(1), engine.WithDepth(engine.Medium, 1)),
		store,
		service.Options{MatchmakingInterval: matchmaking},
	)
	t.Cleanup(gm.Close)

	app := fiber.New()
	Register(app, service.NewGameService(gm, store), nil)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, playerID, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if playerID != "" {
		req.Header.Set("X-Player-ID", playerID)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestPlayerIDRequired(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/game/create", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body["error"], "Player ID is required")

	status, _ = do(t, app, http.MethodPost, "/api/game/create", model.EnginePlayerID, "")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = do(t, app, http.MethodGet, "/api/player/stats?playerId=alice", "", "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestHumanGameOverHTTP(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/game/create", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "white", body["color"])
	gameID := body["game_id"].(string)

	status, body = do(t, app, http.MethodPost, "/api/game/join/"+gameID, "bob", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "black", body["color"])

	status, _ = do(t, app, http.MethodPost, "/api/game/join/"+gameID, "carol", "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = do(t, app, http.MethodGet, "/api/game/"+gameID+"/moves/b1", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.ElementsMatch(t, []interface{}{"a3", "c3"}, body["moves"])

	status, _ = do(t, app, http.MethodGet, "/api/game/"+gameID+"/moves/e4", "alice", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/game/"+gameID+"/move", "bob", `{"from":"e7","to":"e5"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = do(t, app, http.MethodPost, "/api/game/"+gameID+"/move", "alice", `{"from":"e2","to":"e5"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = do(t, app, http.MethodPost, "/api/game/"+gameID+"/move", "carol", `{"from":"e2","to":"e4"}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = do(t, app, http.MethodPost, "/api/game/"+gameID+"/move", "alice", `{"from":`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = do(t, app, http.MethodPost, "/api/game/"+gameID+"/move", "alice", `{"from":"e2","to":"e4"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "black", body["toMove"])
	assert.EqualValues(t, 1, body["version"])

	status, body = do(t, app, http.MethodPost, "/api/game/"+gameID+"/resign", "bob", "")
	require.Equal(t, fiber.StatusOK, status)
	resolve := body["resolve"].(map[string]interface{})
	assert.Equal(t, "resignation", resolve["reason"])
	assert.Equal(t, "white", resolve["winner"])

	status, body = do(t, app, http.MethodGet, "/api/player/stats", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 100, body["winRate"])

	status, _ = do(t, app, http.MethodGet, "/api/game/missing", "alice", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestEngineGameOverHTTP(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/game/create", "alice",
		`{"mode":"engine","difficulty":"medium","color":"black","orientation":"black-at-row-0"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "black", body["color"])
	gameID := body["game_id"].(string)

	require.Eventually(t, func() bool {
		_, state := do(t, app, http.MethodGet, "/api/game/"+gameID, "alice", "")
		return state["toMove"] == "black"
	}, 10*time.Second, 10*time.Millisecond)

	_, state := do(t, app, http.MethodGet, "/api/game/"+gameID, "alice", "")
	assert.Equal(t, "engine", state["mode"])
	assert.Equal(t, "medium", state["difficulty"])
	players := state["players"].(map[string]interface{})
	white := players["white"].(map[string]interface{})
	assert.Equal(t, true, white["isEngine"])

	status, _ = do(t, app, http.MethodPost, "/api/game/create", "alice", `{"mode":"robot"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPreferencesHTTP(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodGet, "/api/player/preferences", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "medium", body["difficulty"])
	assert.Equal(t, "white", body["color"])

	status, body = do(t, app, http.MethodPut, "/api/player/preferences", "alice", `{"difficulty":"hard"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "hard", body["difficulty"])
	assert.Equal(t, "white", body["color"], "fields missing from the body are kept")

	status, _ = do(t, app, http.MethodPut, "/api/player/preferences", "alice", `{"difficulty":"brutal"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, body = do(t, app, http.MethodGet, "/api/player/preferences", "alice", "")
	assert.Equal(t, "hard", body["difficulty"])
}

func TestMatchmakingHTTP(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/game/matchmaking/join", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "queued", body["status"])

	status, _ = do(t, app, http.MethodPost, "/api/game/matchmaking/join", "alice", "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = do(t, app, http.MethodPost, "/api/game/matchmaking/leave", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "left", body["status"])

	status, _ = do(t, app, http.MethodPost, "/api/game/matchmaking/leave", "alice", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPost, "/api/game/matchmaking/join", "alice", "")
	assert.Equal(t, fiber.StatusOK, status, "a player who left may queue again")
}

func TestWebSocketRoutesNeedUpgrade(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, http.MethodGet, "/ws/game/anything", "alice", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
	status, _ = do(t, app, http.MethodGet, "/ws/matchmaking", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
