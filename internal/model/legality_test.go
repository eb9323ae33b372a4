package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var legalityFixtures = []string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w - - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r2q1rk1/pP1p2pp/Q4n2/bbp1p3/Np6/1B3NBn/pPPP1PPP/R3K2R b - - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w - - 1 8",
	"4k3/8/8/8/8/8/4r3/4K3 w - - 0 1",
	"4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1",
	"R6k/6pp/8/8/8/8/8/K7 b - - 0 1",
	"7k/5Q2/6K1/8/8/8/8/8 b - - 0 1",
}

func TestLegalIsSubsetOfPseudoLegal(t *testing.T) {
	for _, fen := range legalityFixtures {
		t.Run(fen, func(t *testing.T) {
			p, _ := fromFEN(t, fen)
			for _, side := range []Side{White, Black} {
				for _, from := range p.Squares(side) {
					pseudo := p.PseudoLegalDestinations(from)
					legal := p.LegalDestinations(from)
					assert.Subset(t, pseudo, legal)

					for _, to := range pseudo {
						if containsSquare(legal, to) {
							continue
						}
						scratch := *p
						scratch.ApplyMove(from, to)
						assert.True(t, scratch.InCheck(side), "%s filtered but leaves no check", Move{from, to}.Name(p.Orientation))
					}
				}
			}
		})
	}
}

func TestLegalDestinationsIdempotent(t *testing.T) {
	for _, fen := range legalityFixtures {
		p, _ := fromFEN(t, fen)
		before := *p
		for _, from := range p.Squares(p.ToMove) {
			first := p.LegalDestinations(from)
			second := p.LegalDestinations(from)
			assert.Equal(t, first, second)
		}
		assert.Equal(t, before, *p, "queries must not mutate the position")
	}
}

func TestPinnedPieceCannotMove(t *testing.T) {
	p := setup(t, WhiteAtRowZero, White, "Ke1", "Be2", "re8", "kh8")
	assert.Empty(t, p.LegalDestinations(sq(t, p.Orientation, "e2")))
	assert.NotEmpty(t, p.PseudoLegalDestinations(sq(t, p.Orientation, "e2")))
}

func TestKingCannotStepIntoCheck(t *testing.T) {
	o := WhiteAtRowZero
	p := setup(t, o, White, "Ke1", "rd8", "kh8")
	assert.ElementsMatch(t, []string{"e2", "f1", "f2"}, names(o, p.LegalDestinations(sq(t, o, "e1"))))
}

func TestLoneKingAndRook(t *testing.T) {
	o := WhiteAtRowZero
	p := setup(t, o, White, "Ka1", "Ra8")
	assert.False(t, p.InCheck(White))
	assert.ElementsMatch(t, []string{"a2", "b1", "b2"}, names(o, p.LegalDestinations(sq(t, o, "a1"))))
	assert.Len(t, p.LegalDestinations(sq(t, o, "a8")), 13)
	assert.False(t, p.IsCheckmate(White))
	assert.False(t, p.IsStalemate(White))
	assert.Equal(t, Ongoing, p.Status(White))
}

// The legal move sets must agree with notnil/chess on positions where
// castling and en passant cannot occur.
func TestLegalMovesMatchReference(t *testing.T) {
	for _, fen := range legalityFixtures {
		t.Run(fen, func(t *testing.T) {
			p, g := fromFEN(t, fen)

			want := map[string]bool{}
			for _, m := range g.ValidMoves() {
				from := Square{Row: int(m.S1().Rank()), Col: int(m.S1().File())}
				to := Square{Row: int(m.S2().Rank()), Col: int(m.S2().File())}
				want[Move{from, to}.Name(p.Orientation)] = true
			}
			got := map[string]bool{}
			for _, m := range p.LegalMoves(p.ToMove) {
				got[m.Name(p.Orientation)] = true
			}
			require.Equal(t, want, got)
		})
	}
}

func TestPerftStartingPosition(t *testing.T) {
	tests := []struct {
		depth    int
		expected int
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
	}
	for _, o := range []Orientation{WhiteAtRowZero, BlackAtRowZero} {
		for _, tc := range tests {
			if testing.Short() && tc.depth > 2 {
				continue
			}
			got := Perft(NewPosition(o), tc.depth)
			assert.Equal(t, tc.expected, got, "%s perft(%d)", o, tc.depth)
		}
	}
}

func TestDivideSumsToPerft(t *testing.T) {
	p := NewPosition(BlackAtRowZero)
	counts := Divide(p, 2)
	assert.Len(t, counts, 20)
	total := 0
	for m, n := range counts {
		assert.Equal(t, 20, n, m.Name(p.Orientation))
		total += n
	}
	assert.Equal(t, Perft(p, 2), total)
	assert.Equal(t, 1, Perft(p, 0))
}

func containsSquare(squares []Square, s Square) bool {
	for _, x := range squares {
		if x == s {
			return true
		}
	}
	return false
}
