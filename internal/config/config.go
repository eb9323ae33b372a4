package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/benbeisheim/chess-engine-backend/internal/engine"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHESS_"

type Config struct {
	Addr         string
	AllowOrigins string
	// DataDir holds the player database. Empty keeps everything in memory.
	DataDir  string
	LogLevel string

	EngineTimeout       time.Duration
	MatchmakingInterval time.Duration
	DepthMedium         int
	DepthHard           int
	DefaultDifficulty   string
}

func Default() Config {
	return Config{
		Addr:                ":3000",
		AllowOrigins:        "http://localhost:5173",
		LogLevel:            "info",
		EngineTimeout:       30 * time.Second,
		MatchmakingInterval: time.Second,
		DepthMedium:         engine.DefaultSettings[engine.Medium].Depth,
		DepthHard:           engine.DefaultSettings[engine.Hard].Depth,
		DefaultDifficulty:   engine.Medium.String(),
	}
}

// Load layers defaults, CHESS_* environment variables and command-line flags,
// in that order, and validates the result.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()
	if err := cfg.fromEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.AllowOrigins, "allow-origins", cfg.AllowOrigins, "comma separated CORS origins")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "player database directory, in-memory when empty")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	fs.DurationVar(&cfg.EngineTimeout, "engine-timeout", cfg.EngineTimeout, "longest the engine may think about one move")
	fs.DurationVar(&cfg.MatchmakingInterval, "matchmaking-interval", cfg.MatchmakingInterval, "how often the queue is paired")
	fs.IntVar(&cfg.DepthMedium, "depth-medium", cfg.DepthMedium, "search depth at medium difficulty")
	fs.IntVar(&cfg.DepthHard, "depth-hard", cfg.DepthHard, "search depth at hard difficulty")
	fs.StringVar(&cfg.DefaultDifficulty, "difficulty", cfg.DefaultDifficulty, "difficulty used when a request names none")
	if err := fs.Parse(args); err != nil {
		return cfg, errors.Wrap(err, "parse flags")
	}
	return cfg, cfg.Validate()
}

func (c *Config) fromEnv(lookup func(string) (string, bool)) error {
	var result error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "%s%s", EnvPrefix, name))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "%s%s", EnvPrefix, name))
				return
			}
			*dst = n
		}
	}

	str("ADDR", &c.Addr)
	str("ALLOW_ORIGINS", &c.AllowOrigins)
	str("DATA_DIR", &c.DataDir)
	str("LOG_LEVEL", &c.LogLevel)
	dur("ENGINE_TIMEOUT", &c.EngineTimeout)
	dur("MATCHMAKING_INTERVAL", &c.MatchmakingInterval)
	num("DEPTH_MEDIUM", &c.DepthMedium)
	num("DEPTH_HARD", &c.DepthHard)
	str("DIFFICULTY", &c.DefaultDifficulty)
	return result
}

var levels = map[string]log.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Level maps LogLevel onto fiber's logger levels.
func (c Config) Level() log.Level {
	if l, ok := levels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return log.LevelInfo
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var result error
	if c.Addr == "" {
		result = multierror.Append(result, errors.New("addr must not be empty"))
	}
	if _, ok := levels[strings.ToLower(c.LogLevel)]; !ok {
		result = multierror.Append(result, errors.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.EngineTimeout <= 0 {
		result = multierror.Append(result, errors.Errorf("engine timeout must be positive, got %s", c.EngineTimeout))
	}
	if c.MatchmakingInterval <= 0 {
		result = multierror.Append(result, errors.Errorf("matchmaking interval must be positive, got %s", c.MatchmakingInterval))
	}
	if c.DepthMedium < 1 {
		result = multierror.Append(result, errors.Errorf("medium depth must be at least 1, got %d", c.DepthMedium))
	}
	if c.DepthHard < 1 {
		result = multierror.Append(result, errors.Errorf("hard depth must be at least 1, got %d", c.DepthHard))
	}
	if _, err := engine.ParseDifficulty(c.DefaultDifficulty); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// EngineOptions turns the depth settings into engine options.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithDepth(engine.Medium, c.DepthMedium),
		engine.WithDepth(engine.Hard, c.DepthHard),
	}
}

// Origins splits AllowOrigins for the websocket origin check.
func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
