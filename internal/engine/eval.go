package engine

import "github.com/benbeisheim/chess-engine-backend/internal/model"

// PieceValues holds the material value of each piece kind, indexed by Kind.
var PieceValues = [...]int{
	model.NoKind: 0,
	model.Pawn:   100,
	model.Knight: 320,
	model.Bishop: 330,
	model.Rook:   500,
	model.Queen:  900,
	model.King:   20000,
}

// Evaluate returns the material balance of pos. Positive favours White,
// the maximizing side.
func Evaluate(pos *model.Position) int {
	score := 0
	for r := 0; r < model.BoardSize; r++ {
		for c := 0; c < model.BoardSize; c++ {
			pc := pos.Board[r][c]
			if pc.IsEmpty() {
				continue
			}
			if pc.Side == model.White {
				score += PieceValues[pc.Kind]
			} else {
				score -= PieceValues[pc.Kind]
			}
		}
	}
	return score
}
