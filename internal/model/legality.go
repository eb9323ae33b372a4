package model

// LegalDestinations filters PseudoLegalDestinations down to the moves that do
// not leave the mover's own king in check. Each candidate is tried on a copy
// of the position.
func (p *Position) LegalDestinations(sq Square) []Square {
	if !sq.OnBoard() {
		return nil
	}
	piece := p.Board.at(sq)
	if piece.IsEmpty() {
		return nil
	}
	var legal []Square
	for _, to := range p.PseudoLegalDestinations(sq) {
		scratch := *p
		scratch.ApplyMove(sq, to)
		if !scratch.InCheck(piece.Side) {
			legal = append(legal, to)
		}
	}
	return legal
}

// LegalMoves lists every legal move of side, squares in row-major order.
func (p *Position) LegalMoves(side Side) []Move {
	var moves []Move
	for _, from := range p.Squares(side) {
		for _, to := range p.LegalDestinations(from) {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func (p *Position) IsLegalMove(m Move) bool {
	for _, to := range p.LegalDestinations(m.From) {
		if to == m.To {
			return true
		}
	}
	return false
}

func (p *Position) hasLegalMove(side Side) bool {
	for _, from := range p.Squares(side) {
		if len(p.LegalDestinations(from)) > 0 {
			return true
		}
	}
	return false
}

// InCheck reports whether side's king is attacked. A board without a king
// for side is never in check.
func (p *Position) InCheck(side Side) bool {
	king, ok := p.KingSquare(side)
	if !ok {
		return false
	}
	return p.isSquareAttacked(side.Opponent(), king)
}

// isSquareAttacked walks outward from target using each piece's movement
// rule in reverse. It finds exactly the squares whose pseudo-legal
// destinations include target.
func (p *Position) isSquareAttacked(attacker Side, target Square) bool {
	if p.rayHits(attacker, target, rookDirs, Rook) || p.rayHits(attacker, target, bishopDirs, Bishop) {
		return true
	}
	if p.stepHits(attacker, target, knightJumps, Knight) || p.stepHits(attacker, target, kingSteps, King) {
		return true
	}
	fwd := p.Orientation.Forward(attacker)
	for _, dc := range []int{-1, 1} {
		from := Square{Row: target.Row - fwd, Col: target.Col + dc}
		if from.OnBoard() && p.Board.at(from) == (Piece{Side: attacker, Kind: Pawn}) {
			return true
		}
	}
	return false
}

func (p *Position) rayHits(attacker Side, target Square, dirs []Square, slider Kind) bool {
	for _, d := range dirs {
		for sq := target.offset(d); sq.OnBoard(); sq = sq.offset(d) {
			pc := p.Board.at(sq)
			if pc.IsEmpty() {
				continue
			}
			if pc.Side == attacker && (pc.Kind == slider || pc.Kind == Queen) {
				return true
			}
			break
		}
	}
	return false
}

func (p *Position) stepHits(attacker Side, target Square, offsets []Square, kind Kind) bool {
	want := Piece{Side: attacker, Kind: kind}
	for _, d := range offsets {
		if sq := target.offset(d); sq.OnBoard() && p.Board.at(sq) == want {
			return true
		}
	}
	return false
}
