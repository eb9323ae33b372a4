package model

import "github.com/pkg/errors"

var (
	ErrInvalidSquare   = errors.New("invalid square")
	ErrNoPieceAtSquare = errors.New("no piece at square")
	ErrIllegalMove     = errors.New("illegal move")
	ErrNotPromotable   = errors.New("not promotable")
)

var (
	ErrGameFull      = errors.New("game is full")
	ErrGameOver      = errors.New("game is over")
	ErrNotInGame     = errors.New("player not in game")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrStaleMove     = errors.New("stale move")
	ErrAlreadyQueued = errors.New("player already in queue")
	ErrNotQueued     = errors.New("player not in queue")
)
