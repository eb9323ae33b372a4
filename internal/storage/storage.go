package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/engine"
	"github.com/benbeisheim/chess-engine-backend/internal/model"
)

// Storage keys, one of each per player.
const (
	keyPreferences = "preferences/"
	keyStats       = "stats/"
)

// Preferences are the defaults a player's new games start from.
type Preferences struct {
	Difficulty  engine.Difficulty `json:"difficulty"`
	Color       model.Side        `json:"color"`
	Orientation model.Orientation `json:"orientation"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func DefaultPreferences() *Preferences {
	return &Preferences{
		Difficulty:  engine.Medium,
		Color:       model.White,
		Orientation: model.WhiteAtRowZero,
	}
}

// Tally counts results.
type Tally struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Stats are a player's results over all finished games.
type Stats struct {
	GamesPlayed   int              `json:"gamesPlayed"`
	Wins          int              `json:"wins"`
	Losses        int              `json:"losses"`
	Draws         int              `json:"draws"`
	ByDifficulty  map[string]Tally `json:"byDifficulty"`
	CurrentStreak int              `json:"currentStreak"`
	LongestStreak int              `json:"longestStreak"`
}

func NewStats() *Stats {
	return &Stats{ByDifficulty: make(map[string]Tally)}
}

// WinRate returns the win rate as a percentage (0-100).
func (s *Stats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// GameResult is one finished game from one player's point of view.
// Difficulty is empty for games between two humans.
type GameResult struct {
	PlayerID   string
	Won        bool
	Draw       bool
	Difficulty string
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db       *badger.DB
	defaults Preferences
}

// Open opens the database in dir, or an in-memory one when dir is empty.
// defaults are returned for players with no saved preferences; nil means
// DefaultPreferences.
func Open(dir string, defaults *Preferences) (*Storage, error) {
	if defaults == nil {
		defaults = DefaultPreferences()
	}
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %q", dir)
	}
	return &Storage{db: db, defaults: *defaults}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SavePreferences(playerID string, prefs *Preferences) error {
	prefs.UpdatedAt = time.Now()
	return s.db.Update(func(txn *badger.Txn) error {
		return put(txn, keyPreferences+playerID, prefs)
	})
}

// LoadPreferences returns the defaults for a player who never saved any.
func (s *Storage) LoadPreferences(playerID string) (*Preferences, error) {
	prefs := s.defaults
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, keyPreferences+playerID, &prefs)
	})
	return &prefs, err
}

// LoadStats returns empty stats for a player with no finished games.
func (s *Storage) LoadStats(playerID string) (*Stats, error) {
	stats := NewStats()
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, keyStats+playerID, stats)
	})
	return stats, err
}

// RecordGame folds one result into the player's stats.
func (s *Storage) RecordGame(result GameResult) error {
	if result.PlayerID == "" {
		return errors.New("record game: empty player id")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		stats := NewStats()
		if err := get(txn, keyStats+result.PlayerID, stats); err != nil {
			return err
		}
		if stats.ByDifficulty == nil {
			stats.ByDifficulty = make(map[string]Tally)
		}

		stats.GamesPlayed++
		tally := stats.ByDifficulty[result.Difficulty]
		switch {
		case result.Draw:
			stats.Draws++
			tally.Draws++
			stats.CurrentStreak = 0
		case result.Won:
			stats.Wins++
			tally.Wins++
			stats.CurrentStreak++
			stats.LongestStreak = max(stats.LongestStreak, stats.CurrentStreak)
		default:
			stats.Losses++
			tally.Losses++
			stats.CurrentStreak = 0
		}
		if result.Difficulty != "" {
			stats.ByDifficulty[result.Difficulty] = tally
		}
		return put(txn, keyStats+result.PlayerID, stats)
	})
}

func get(txn *badger.Txn, key string, v interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "get %s", key)
	}
	return item.Value(func(val []byte) error {
		return errors.Wrapf(json.Unmarshal(val, v), "decode %s", key)
	})
}

func put(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return txn.Set([]byte(key), data)
}
