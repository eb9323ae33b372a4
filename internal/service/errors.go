package service

import "github.com/pkg/errors"

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrInvalidRequest = errors.New("invalid request")
)
