package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/benbeisheim/chess-engine-backend/internal/middleware"
	"github.com/benbeisheim/chess-engine-backend/internal/service"
)

type PlayerController struct {
	gameService *service.GameService
}

func NewPlayerController(gameService *service.GameService) *PlayerController {
	return &PlayerController{gameService: gameService}
}

func (pc *PlayerController) GetPreferences(c *fiber.Ctx) error {
	prefs, err := pc.gameService.GetPreferences(middleware.PlayerID(c))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(prefs)
}

// UpdatePreferences merges the fields present in the body into the saved
// preferences.
func (pc *PlayerController) UpdatePreferences(c *fiber.Ctx) error {
	playerID := middleware.PlayerID(c)
	prefs, err := pc.gameService.GetPreferences(playerID)
	if err != nil {
		return sendError(c, err)
	}
	if err := parseBody(c, prefs); err != nil {
		return sendError(c, err)
	}
	if err := pc.gameService.SavePreferences(playerID, prefs); err != nil {
		return sendError(c, err)
	}
	return c.JSON(prefs)
}

func (pc *PlayerController) GetStats(c *fiber.Ctx) error {
	stats, err := pc.gameService.GetStats(middleware.PlayerID(c))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"stats":   stats,
		"winRate": stats.WinRate(),
	})
}
