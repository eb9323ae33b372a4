package engine

import (
	"math/rand/v2"

	"github.com/benbeisheim/chess-engine-backend/internal/model"
)

// RandomLegalMove picks uniformly among the legal moves of side. It does no
// search at all. NoMove is returned when side cannot move.
func RandomLegalMove(pos *model.Position, side model.Side, rng *rand.Rand) model.Move {
	moves := pos.LegalMoves(side)
	if len(moves) == 0 {
		return model.NoMove
	}
	return moves[rng.IntN(len(moves))]
}
