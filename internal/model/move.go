package model

// Move is an ordered (from, to) pair. Promotion is applied separately.
type Move struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// NoMove is returned when no move exists. It is never legal since From == To.
var NoMove = Move{}

func (m Move) IsNull() bool {
	return m.From == m.To
}

// Name renders the move as two square names, e.g. "e2e4".
func (m Move) Name(o Orientation) string {
	if m.IsNull() {
		return "none"
	}
	return o.SquareName(m.From) + o.SquareName(m.To)
}

// WSMove is a move request from a client.
type WSMove struct {
	From      Square `json:"from"`
	To        Square `json:"to"`
	Promotion Kind   `json:"promotion"`
}

// Ply records one applied move.
type Ply struct {
	Side          Side   `json:"side"`
	Piece         Piece  `json:"piece"`
	From          Square `json:"from"`
	To            Square `json:"to"`
	CapturedPiece *Piece `json:"capturedPiece"`
	Promotion     Kind   `json:"promotion,omitempty"`
	Notation      string `json:"notation"`
}
