// Package config loads runtime settings from the environment (and an optional
// .env file in development).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/wsrjk/bblgm/internal/game"
)

// Config is the full set of runtime settings.
type Config struct {
	Port          string
	LogLevel      string
	LogFormat     string // "json" | "console"
	ClientOrigin  string
	DBPath        string // empty: in-memory high-score ledger
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool
	Profile       string // "" | "cpu" | "mem"
	SpawnMode     string // "poll" | "timer"
	LabelsFile    string
	Tuning        game.Tuning
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	d := game.DefaultTuning()
	t := game.Tuning{
		Speed:            envFloat("BUBBLE_SPEED", d.Speed),
		SpeedStep:        envFloat("SPEED_STEP", d.SpeedStep),
		SpawnInterval:    envDuration("SPAWN_INTERVAL", d.SpawnInterval),
		SpawnStep:        envDuration("SPAWN_STEP", d.SpawnStep),
		MinSpawnInterval: envDuration("MIN_SPAWN_INTERVAL", d.MinSpawnInterval),
		MaxBubbles:       envInt("MAX_BUBBLES", d.MaxBubbles),
		MinDistance:      envInt("MIN_DISTANCE", d.MinDistance),
		MinX:             d.MinX,
		MaxX:             d.MaxX,
		SpawnY:           d.SpawnY,
		OffFieldY:        d.OffFieldY,
		MaxLevel:         envInt("MAX_LEVEL", d.MaxLevel),
		LevelStep:        envInt("LEVEL_STEP", d.LevelStep),
		MultiLetterLevel: envInt("MULTI_LETTER_LEVEL", d.MultiLetterLevel),
	}

	mode := strings.ToLower(getEnv("SPAWN_MODE", "poll"))
	if mode != "poll" && mode != "timer" {
		log.Warn().Str("SPAWN_MODE", mode).Msg("unknown spawn mode, using poll")
		mode = "poll"
	}

	return Config{
		Port:          getEnv("PORT", "10000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "json")),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "*"),
		DBPath:        os.Getenv("DB_PATH"),
		SessionSecret: getEnv("SESSION_SECRET", "dev_secret_change_me"),
		SessionTTL:    time.Duration(envInt("SESSION_DAYS", 30)) * 24 * time.Hour,
		SecureCookies: os.Getenv("APP_ENV") == "production",
		Profile:       strings.ToLower(os.Getenv("PROFILE")),
		SpawnMode:     mode,
		LabelsFile:    os.Getenv("LABELS_FILE"),
		Tuning:        t,
	}
}

// SpawnDriver maps SpawnMode to the engine option value.
func (c Config) SpawnDriver() game.SpawnDriver {
	if c.SpawnMode == "timer" {
		return game.SpawnOnTimer
	}
	return game.SpawnOnPoll
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		return def
	}
	return n
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid number, using default")
		return def
	}
	return f
}

// envDuration accepts Go durations ("750ms") or a bare integer of milliseconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
		return def
	}
	return d
}
