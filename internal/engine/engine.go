package engine

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/model"
)

// Difficulty represents the AI difficulty level.
type Difficulty int8

const (
	Easy   Difficulty = iota // random legal move
	Medium                   // depth 3
	Hard                     // depth 4
)

var difficultyNames = [...]string{"easy", "medium", "hard"}

func (d Difficulty) String() string {
	if d < 0 || int(d) >= len(difficultyNames) {
		return "unknown"
	}
	return difficultyNames[d]
}

func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDifficulty accepts "easy", "medium" or "hard". The empty string is Medium.
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Medium, nil
	}
	for i, name := range difficultyNames {
		if name == s {
			return Difficulty(i), nil
		}
	}
	return Medium, errors.Errorf("unknown difficulty %q", s)
}

// Settings selects how a difficulty level picks its move.
type Settings struct {
	Random bool // pick a random legal move instead of searching
	Depth  int  // search depth in plies
}

// DefaultSettings maps difficulty to move selection.
var DefaultSettings = map[Difficulty]Settings{
	Easy:   {Random: true, Depth: 1},
	Medium: {Depth: 3},
	Hard:   {Depth: 4},
}

// Result is the outcome of one move decision.
type Result struct {
	Move    model.Move
	Score   int
	Depth   int
	Random  bool
	Elapsed time.Duration
}

// Engine chooses moves for the computer player. The search itself keeps no
// state between calls; the engine only carries configuration and the random
// source of the weak mode.
type Engine struct {
	settings map[Difficulty]Settings

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Engine)

// WithSeed makes the random mover reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithDepth overrides the search depth used at level d.
func WithDepth(d Difficulty, depth int) Option {
	return func(e *Engine) {
		s := e.settings[d]
		s.Depth = depth
		e.settings[d] = s
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		settings: make(map[Difficulty]Settings, len(DefaultSettings)),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for d, s := range DefaultSettings {
		e.settings[d] = s
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Settings(d Difficulty) Settings {
	if s, ok := e.settings[d]; ok {
		return s
	}
	return e.settings[Medium]
}

// Choose picks a move for the side to move of pos. It blocks for the whole
// search and does not modify pos.
func (e *Engine) Choose(pos *model.Position, d Difficulty) Result {
	start := time.Now()
	s := e.Settings(d)
	if s.Random {
		e.mu.Lock()
		m := RandomLegalMove(pos, pos.ToMove, e.rng)
		e.mu.Unlock()
		return Result{Move: m, Score: Evaluate(pos), Random: true, Elapsed: time.Since(start)}
	}
	score, m := BestMove(pos, s.Depth)
	return Result{Move: m, Score: score, Depth: s.Depth, Elapsed: time.Since(start)}
}

// Think runs Choose in its own goroutine. If ctx ends first, Think returns
// ctx.Err() and the search result, once it arrives, is dropped. The search
// cannot be interrupted.
func (e *Engine) Think(ctx context.Context, pos *model.Position, d Difficulty) (Result, error) {
	snapshot := pos.Clone()
	done := make(chan Result, 1)
	go func() {
		done <- e.Choose(snapshot, d)
	}()
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
