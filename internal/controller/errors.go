package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/model"
	"github.com/benbeisheim/chess-engine-backend/internal/service"
)

// statusFor maps service and rules errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, model.ErrNotQueued):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrNotInGame):
		return fiber.StatusForbidden
	case errors.Is(err, model.ErrGameFull),
		errors.Is(err, model.ErrAlreadyQueued),
		errors.Is(err, model.ErrNotYourTurn),
		errors.Is(err, model.ErrGameOver),
		errors.Is(err, model.ErrStaleMove):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidSquare),
		errors.Is(err, model.ErrNoPieceAtSquare),
		errors.Is(err, model.ErrIllegalMove),
		errors.Is(err, model.ErrNotPromotable):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func sendError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// parseBody decodes a JSON body into v. An empty body leaves v untouched.
func parseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return errors.Wrap(service.ErrInvalidRequest, err.Error())
	}
	return nil
}
