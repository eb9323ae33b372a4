package engine

import (
	"golang.org/x/exp/slices"

	"github.com/benbeisheim/chess-engine-backend/internal/model"
)

// Infinity bounds every reachable score.
const Infinity = 1 << 30

type scoredMove struct {
	move  model.Move
	score int
}

// Search is depth-limited minimax with alpha-beta pruning. White maximizes.
// The mover at this node is White when maximizing is true, Black otherwise,
// regardless of pos.ToMove. Every child is searched on its own copy of pos.
//
// A node with no legal moves returns its static evaluation and NoMove; the
// search does not tell checkmate from stalemate.
func Search(pos *model.Position, depth, alpha, beta int, maximizing bool) (int, model.Move) {
	if depth <= 0 {
		return Evaluate(pos), model.NoMove
	}
	mover := model.Black
	if maximizing {
		mover = model.White
	}
	moves := orderMoves(pos, mover, maximizing)
	if len(moves) == 0 {
		return Evaluate(pos), model.NoMove
	}

	best := model.NoMove
	if maximizing {
		bestScore := -Infinity
		for _, sm := range moves {
			child := *pos
			child.ApplyMove(sm.move.From, sm.move.To)
			child.ToMove = model.Black
			score, _ := Search(&child, depth-1, alpha, beta, false)
			if score > bestScore {
				bestScore, best = score, sm.move
				alpha = max(alpha, score)
			}
			if beta <= alpha {
				break
			}
		}
		return bestScore, best
	}

	bestScore := Infinity
	for _, sm := range moves {
		child := *pos
		child.ApplyMove(sm.move.From, sm.move.To)
		child.ToMove = model.White
		score, _ := Search(&child, depth-1, alpha, beta, true)
		if score < bestScore {
			bestScore, best = score, sm.move
			beta = min(beta, score)
		}
		if beta <= alpha {
			break
		}
	}
	return bestScore, best
}

// BestMove searches pos to depth with a full window for the side to move.
func BestMove(pos *model.Position, depth int) (int, model.Move) {
	return Search(pos, depth, -Infinity, Infinity, pos.ToMove == model.White)
}

// orderMoves lists the legal moves of mover sorted by the static evaluation
// one ply ahead, best first for mover. Ties keep generation order.
func orderMoves(pos *model.Position, mover model.Side, maximizing bool) []scoredMove {
	legal := pos.LegalMoves(mover)
	moves := make([]scoredMove, 0, len(legal))
	for _, m := range legal {
		scratch := *pos
		scratch.ApplyMove(m.From, m.To)
		moves = append(moves, scoredMove{move: m, score: Evaluate(&scratch)})
	}
	slices.SortStableFunc(moves, func(a, b scoredMove) int {
		if maximizing {
			return b.score - a.score
		}
		return a.score - b.score
	})
	return moves
}
