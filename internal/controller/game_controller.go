package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/benbeisheim/chess-engine-backend/internal/middleware"
	"github.com/benbeisheim/chess-engine-backend/internal/model"
	"github.com/benbeisheim/chess-engine-backend/internal/service"
)

type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	var req service.CreateGameRequest
	if err := parseBody(c, &req); err != nil {
		return sendError(c, err)
	}

	gameID, side, err := gc.gameService.CreateGame(middleware.PlayerID(c), req)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Game created",
		"game_id": gameID,
		"color":   side,
	})
}

func (gc *GameController) JoinGame(c *fiber.Ctx) error {
	side, err := gc.gameService.JoinGame(c.Params("gameId"), middleware.PlayerID(c))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Game joined",
		"color":   side,
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(gameState)
}

func (gc *GameController) JoinMatchmaking(c *fiber.Ctx) error {
	if err := gc.gameService.JoinMatchmaking(middleware.PlayerID(c)); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"status": "queued",
	})
}

func (gc *GameController) LeaveMatchmaking(c *fiber.Ctx) error {
	if err := gc.gameService.LeaveMatchmaking(middleware.PlayerID(c)); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"status": "left",
	})
}

// LegalMoves lists where the piece on :square may move, as square names.
func (gc *GameController) LegalMoves(c *fiber.Ctx) error {
	square := c.Params("square")
	moves, err := gc.gameService.LegalDestinationNames(c.Params("gameId"), square)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"square": square,
		"moves":  moves,
	})
}

type moveRequest struct {
	From      string     `json:"from"`
	To        string     `json:"to"`
	Promotion model.Kind `json:"promotion"`
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	var req moveRequest
	if err := parseBody(c, &req); err != nil {
		return sendError(c, err)
	}

	gameID := c.Params("gameId")
	if err := gc.gameService.HandleNamedMove(gameID, middleware.PlayerID(c), req.From, req.To, req.Promotion); err != nil {
		return sendError(c, err)
	}
	return gc.GetGameState(c)
}

func (gc *GameController) Resign(c *fiber.Ctx) error {
	if err := gc.gameService.Resign(c.Params("gameId"), middleware.PlayerID(c)); err != nil {
		return sendError(c, err)
	}
	return gc.GetGameState(c)
}
