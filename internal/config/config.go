package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultAppName        = "jati"
	defaultPort           = "8000"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultStaleEntryAge  = time.Hour
)

// Amount column precision and transaction bounds. These are deployment
// constants shared by request validation and the numeric(12,2) schema
// columns; changing them requires a storage migration, not an env var.
const (
	AmountMaxDigits = 12
	AmountPrecision = 2
)

var (
	// TransactionMinAmount is the smallest amount a single transfer may move.
	TransactionMinAmount = decimal.RequireFromString("1.00")
	// TransactionMaxAmount is the largest amount a single transfer may move.
	TransactionMaxAmount = decimal.RequireFromString("10000.00")
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	StaleEntryAge  time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.StaleEntryAge, err = durationEnv("STALE_ENTRY_AGE", defaultStaleEntryAge); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
