// Package config loads server and gameplay settings.
// Order of precedence: defaults, then a .env file, then ARENA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server holds process level settings.
type Server struct {
	ListenAddr   string
	DBPath       string
	MatchID      string
	Profile      string // optimization profile: default, stress, low
	TickInterval time.Duration

	EventRetention int // In-memory ledger window; 0 keeps everything
}

// Game holds the gameplay tunables consumed by the simulation core.
type Game struct {
	Mode string // ffa or teams

	BorderLeft   float64
	BorderTop    float64
	BorderRight  float64
	BorderBottom float64

	FoodSpawnAmount int // Per-tick spawn batch cap
	FoodStartAmount int
	FoodMaxAmount   int
	FoodMass        float64

	VirusMinAmount  int
	VirusMaxAmount  int
	VirusStartMass  float64
	VirusFeedAmount int // Ejections a virus swallows before it shoots

	EjectMass            float64
	EjectMassLoss        float64
	EjectSpeed           float64
	EjectMassCooldown    time.Duration
	EjectCooldownEnabled bool

	PlayerStartMass     float64
	PlayerMaxMass       float64
	PlayerMinMassEject  float64
	PlayerMinMassSplit  float64
	PlayerMaxCells      int
	PlayerRecombineTime float64
	PlayerMassDecayRate float64
	PlayerMinMassDecay  float64

	AntiTeaming    bool // Penalise suspected teaming with faster decay
	SameTeamExempt bool // Team mode: mass shared inside a team is not penalised

	ViewBaseX float64
	ViewBaseY float64
}

// Config is the full application configuration.
type Config struct {
	Server Server
	Game   Game
}

// Default returns the stock settings.
func Default() Config {
	return Config{
		Server: Server{
			ListenAddr:   ":8080",
			DBPath:       "data/arena.db",
			MatchID:      "",
			Profile:      "default",
			TickInterval: 2 * time.Millisecond, // Clients and independent nodes update every 25th tick

			EventRetention: 50000,
		},
		Game: Game{
			Mode: "ffa",

			BorderLeft:   0,
			BorderTop:    0,
			BorderRight:  6000,
			BorderBottom: 6000,

			FoodSpawnAmount: 10,
			FoodStartAmount: 100,
			FoodMaxAmount:   500,
			FoodMass:        1,

			VirusMinAmount:  10,
			VirusMaxAmount:  50,
			VirusStartMass:  100,
			VirusFeedAmount: 7,

			EjectMass:            12,
			EjectMassLoss:        16,
			EjectSpeed:           160,
			EjectMassCooldown:    100 * time.Millisecond,
			EjectCooldownEnabled: false,

			PlayerStartMass:     10,
			PlayerMaxMass:       22500,
			PlayerMinMassEject:  32,
			PlayerMinMassSplit:  36,
			PlayerMaxCells:      16,
			PlayerRecombineTime: 1,
			PlayerMassDecayRate: 0.002,
			PlayerMinMassDecay:  9,

			AntiTeaming:    true,
			SameTeamExempt: true,

			ViewBaseX: 1024,
			ViewBaseY: 592,
		},
	}
}

// Load builds a Config from defaults, the given .env files and the process
// environment. Missing .env files are ignored.
func Load(files ...string) (Config, error) {
	cfg := Default()

	vars := map[string]string{}
	for _, f := range files {
		fileVars, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cfg, fmt.Errorf("failed to read %s: %w", f, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, envPrefix) {
			vars[k] = v
		}
	}

	if err := cfg.apply(vars); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	g := c.Game
	switch {
	case g.BorderRight <= g.BorderLeft || g.BorderBottom <= g.BorderTop:
		return fmt.Errorf("invalid arena border %v,%v-%v,%v", g.BorderLeft, g.BorderTop, g.BorderRight, g.BorderBottom)
	case g.PlayerMaxCells < 1:
		return fmt.Errorf("player max cells must be at least 1, got %d", g.PlayerMaxCells)
	case g.FoodSpawnAmount < 0 || g.FoodMaxAmount < 0:
		return fmt.Errorf("food amounts must not be negative")
	case g.VirusMinAmount < 0 || g.VirusMaxAmount < g.VirusMinAmount:
		return fmt.Errorf("virus amounts out of order: min=%d max=%d", g.VirusMinAmount, g.VirusMaxAmount)
	case g.EjectMassLoss < 0 || g.EjectMass <= 0:
		return fmt.Errorf("eject mass settings must be positive")
	case g.Mode != "ffa" && g.Mode != "teams":
		return fmt.Errorf("unknown game mode %q", g.Mode)
	case c.Server.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive")
	case c.Server.EventRetention < 0:
		return fmt.Errorf("event retention must not be negative")
	}
	return nil
}

const envPrefix = "ARENA_"

type setter func(c *Config, v string) error

var setters = map[string]setter{
	"ARENA_LISTEN_ADDR":   func(c *Config, v string) error { c.Server.ListenAddr = v; return nil },
	"ARENA_DB_PATH":       func(c *Config, v string) error { c.Server.DBPath = v; return nil },
	"ARENA_MATCH_ID":      func(c *Config, v string) error { c.Server.MatchID = v; return nil },
	"ARENA_PROFILE":       func(c *Config, v string) error { c.Server.Profile = v; return nil },
	"ARENA_TICK_INTERVAL": durationSetter(func(c *Config) *time.Duration { return &c.Server.TickInterval }),

	"ARENA_EVENT_RETENTION": intSetter(func(c *Config) *int { return &c.Server.EventRetention }),

	"ARENA_MODE": func(c *Config, v string) error { c.Game.Mode = strings.ToLower(v); return nil },

	"ARENA_BORDER_LEFT":   floatSetter(func(c *Config) *float64 { return &c.Game.BorderLeft }),
	"ARENA_BORDER_TOP":    floatSetter(func(c *Config) *float64 { return &c.Game.BorderTop }),
	"ARENA_BORDER_RIGHT":  floatSetter(func(c *Config) *float64 { return &c.Game.BorderRight }),
	"ARENA_BORDER_BOTTOM": floatSetter(func(c *Config) *float64 { return &c.Game.BorderBottom }),

	"ARENA_FOOD_SPAWN_AMOUNT": intSetter(func(c *Config) *int { return &c.Game.FoodSpawnAmount }),
	"ARENA_FOOD_START_AMOUNT": intSetter(func(c *Config) *int { return &c.Game.FoodStartAmount }),
	"ARENA_FOOD_MAX_AMOUNT":   intSetter(func(c *Config) *int { return &c.Game.FoodMaxAmount }),
	"ARENA_FOOD_MASS":         floatSetter(func(c *Config) *float64 { return &c.Game.FoodMass }),

	"ARENA_VIRUS_MIN_AMOUNT":  intSetter(func(c *Config) *int { return &c.Game.VirusMinAmount }),
	"ARENA_VIRUS_MAX_AMOUNT":  intSetter(func(c *Config) *int { return &c.Game.VirusMaxAmount }),
	"ARENA_VIRUS_START_MASS":  floatSetter(func(c *Config) *float64 { return &c.Game.VirusStartMass }),
	"ARENA_VIRUS_FEED_AMOUNT": intSetter(func(c *Config) *int { return &c.Game.VirusFeedAmount }),

	"ARENA_EJECT_MASS":             floatSetter(func(c *Config) *float64 { return &c.Game.EjectMass }),
	"ARENA_EJECT_MASS_LOSS":        floatSetter(func(c *Config) *float64 { return &c.Game.EjectMassLoss }),
	"ARENA_EJECT_SPEED":            floatSetter(func(c *Config) *float64 { return &c.Game.EjectSpeed }),
	"ARENA_EJECT_MASS_COOLDOWN":    durationSetter(func(c *Config) *time.Duration { return &c.Game.EjectMassCooldown }),
	"ARENA_EJECT_COOLDOWN_ENABLED": boolSetter(func(c *Config) *bool { return &c.Game.EjectCooldownEnabled }),

	"ARENA_PLAYER_START_MASS":      floatSetter(func(c *Config) *float64 { return &c.Game.PlayerStartMass }),
	"ARENA_PLAYER_MAX_MASS":        floatSetter(func(c *Config) *float64 { return &c.Game.PlayerMaxMass }),
	"ARENA_PLAYER_MIN_MASS_EJECT":  floatSetter(func(c *Config) *float64 { return &c.Game.PlayerMinMassEject }),
	"ARENA_PLAYER_MIN_MASS_SPLIT":  floatSetter(func(c *Config) *float64 { return &c.Game.PlayerMinMassSplit }),
	"ARENA_PLAYER_MAX_CELLS":       intSetter(func(c *Config) *int { return &c.Game.PlayerMaxCells }),
	"ARENA_PLAYER_RECOMBINE_TIME":  floatSetter(func(c *Config) *float64 { return &c.Game.PlayerRecombineTime }),
	"ARENA_PLAYER_MASS_DECAY_RATE": floatSetter(func(c *Config) *float64 { return &c.Game.PlayerMassDecayRate }),
	"ARENA_PLAYER_MIN_MASS_DECAY":  floatSetter(func(c *Config) *float64 { return &c.Game.PlayerMinMassDecay }),

	"ARENA_ANTI_TEAMING":     boolSetter(func(c *Config) *bool { return &c.Game.AntiTeaming }),
	"ARENA_SAME_TEAM_EXEMPT": boolSetter(func(c *Config) *bool { return &c.Game.SameTeamExempt }),

	"ARENA_VIEW_BASE_X": floatSetter(func(c *Config) *float64 { return &c.Game.ViewBaseX }),
	"ARENA_VIEW_BASE_Y": floatSetter(func(c *Config) *float64 { return &c.Game.ViewBaseY }),
}

func (c *Config) apply(vars map[string]string) error {
	for k, v := range vars {
		set, ok := setters[k]
		if !ok {
			continue
		}
		if err := set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid value for %s: %w", k, err)
		}
	}
	return nil
}

func intSetter(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func floatSetter(field func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func boolSetter(field func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func durationSetter(field func(*Config) *time.Duration) setter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}
