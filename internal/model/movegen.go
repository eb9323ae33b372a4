package model

var (
	rookDirs    = []Square{{Row: 0, Col: 1}, {Row: 0, Col: -1}, {Row: 1, Col: 0}, {Row: -1, Col: 0}}
	bishopDirs  = []Square{{Row: 1, Col: 1}, {Row: 1, Col: -1}, {Row: -1, Col: 1}, {Row: -1, Col: -1}}
	queenDirs   = append(append([]Square{}, rookDirs...), bishopDirs...)
	kingSteps   = queenDirs
	knightJumps = []Square{
		{Row: 2, Col: 1}, {Row: 2, Col: -1}, {Row: -2, Col: 1}, {Row: -2, Col: -1},
		{Row: 1, Col: 2}, {Row: 1, Col: -2}, {Row: -1, Col: 2}, {Row: -1, Col: -2},
	}
)

// PseudoLegalDestinations lists where the piece on sq may move by its
// movement rule alone, ignoring whether its own king is left in check.
// An empty or off-board square yields no destinations.
func (p *Position) PseudoLegalDestinations(sq Square) []Square {
	if !sq.OnBoard() {
		return nil
	}
	piece := p.Board.at(sq)
	switch piece.Kind {
	case Pawn:
		return p.pawnDestinations(sq, piece.Side)
	case Knight:
		return p.stepDestinations(sq, piece.Side, knightJumps)
	case Bishop:
		return p.slideDestinations(sq, piece.Side, bishopDirs)
	case Rook:
		return p.slideDestinations(sq, piece.Side, rookDirs)
	case Queen:
		return p.slideDestinations(sq, piece.Side, queenDirs)
	case King:
		return p.stepDestinations(sq, piece.Side, kingSteps)
	}
	return nil
}

// PseudoLegalMoves lists every pseudo-legal move of side, squares in row-major order.
func (p *Position) PseudoLegalMoves(side Side) []Move {
	var moves []Move
	for _, from := range p.Squares(side) {
		for _, to := range p.PseudoLegalDestinations(from) {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func (p *Position) pawnDestinations(sq Square, side Side) []Square {
	var dests []Square
	fwd := p.Orientation.Forward(side)
	one := Square{Row: sq.Row + fwd, Col: sq.Col}
	if one.OnBoard() && p.Board.at(one).IsEmpty() {
		dests = append(dests, one)
		two := Square{Row: sq.Row + 2*fwd, Col: sq.Col}
		if sq.Row == p.Orientation.PawnStartRow(side) && two.OnBoard() && p.Board.at(two).IsEmpty() {
			dests = append(dests, two)
		}
	}
	for _, dc := range []int{-1, 1} {
		target := Square{Row: sq.Row + fwd, Col: sq.Col + dc}
		if !target.OnBoard() {
			continue
		}
		if pc := p.Board.at(target); !pc.IsEmpty() && pc.Side != side {
			dests = append(dests, target)
		}
	}
	return dests
}

func (p *Position) stepDestinations(sq Square, side Side, offsets []Square) []Square {
	var dests []Square
	for _, d := range offsets {
		target := sq.offset(d)
		if !target.OnBoard() {
			continue
		}
		if pc := p.Board.at(target); pc.IsEmpty() || pc.Side != side {
			dests = append(dests, target)
		}
	}
	return dests
}

func (p *Position) slideDestinations(sq Square, side Side, dirs []Square) []Square {
	var dests []Square
	for _, d := range dirs {
		for target := sq.offset(d); target.OnBoard(); target = target.offset(d) {
			pc := p.Board.at(target)
			if pc.IsEmpty() {
				dests = append(dests, target)
				continue
			}
			if pc.Side != side {
				dests = append(dests, target)
			}
			break
		}
	}
	return dests
}
