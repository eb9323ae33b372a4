package model

import "github.com/pkg/errors"

type Status int8

const (
	Ongoing Status = iota
	Check
	Checkmate
	Stalemate
)

var statusNames = [...]string{"ongoing", "check", "checkmate", "stalemate"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return errors.Errorf("unknown status %q", text)
}

// IsTerminal reports whether the game is over for the side to move.
func (s Status) IsTerminal() bool {
	return s == Checkmate || s == Stalemate
}

func (p *Position) IsCheckmate(side Side) bool {
	return p.InCheck(side) && !p.hasLegalMove(side)
}

func (p *Position) IsStalemate(side Side) bool {
	return !p.InCheck(side) && !p.hasLegalMove(side)
}

// Status classifies the position for side in one pass.
func (p *Position) Status(side Side) Status {
	check := p.InCheck(side)
	moves := p.hasLegalMove(side)
	switch {
	case check && !moves:
		return Checkmate
	case !moves:
		return Stalemate
	case check:
		return Check
	}
	return Ongoing
}
