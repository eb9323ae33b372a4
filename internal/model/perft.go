package model

// Perft counts the leaf nodes of the legal move tree of p to depth plies.
// Moves are plain (from, to) pairs, so counts match standard chess only while
// no castling, en passant or promotion is reachable.
func Perft(p *Position, depth int) int {
	if depth <= 0 {
		return 1
	}
	moves := p.LegalMoves(p.ToMove)
	if depth == 1 {
		return len(moves)
	}
	nodes := 0
	for _, m := range moves {
		child := *p
		child.ApplyMove(m.From, m.To)
		child.SwitchTurn()
		nodes += Perft(&child, depth-1)
	}
	return nodes
}

// Divide returns Perft of each root move at depth-1, keyed by move.
func Divide(p *Position, depth int) map[Move]int {
	counts := make(map[Move]int)
	for _, m := range p.LegalMoves(p.ToMove) {
		child := *p
		child.ApplyMove(m.From, m.To)
		child.SwitchTurn()
		counts[m] = Perft(&child, depth-1)
	}
	return counts
}
