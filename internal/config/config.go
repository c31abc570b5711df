package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:stockroom.db"
)

type Config struct {
	HTTPAddr        string
	LogLevel        string
	StoreDriver     string
	DatabaseURL     string
	SeedData        bool
	ShutdownTimeout time.Duration

	MetricsEnabled bool
	MetricsToken   string

	// AdminJWTSecret guards mutating endpoints when non-empty.
	AdminJWTSecret string
	WriteRateLimit int
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:       getString("HTTP_ADDR", ":8080"),
		LogLevel:       strings.ToLower(getString("LOG_LEVEL", "info")),
		StoreDriver:    strings.ToLower(getString("STORE_DRIVER", DriverMemory)),
		DatabaseURL:    getString("DATABASE_URL", ""),
		MetricsToken:   getString("METRICS_TOKEN", ""),
		AdminJWTSecret: getString("ADMIN_JWT_SECRET", ""),
	}

	var err error
	if cfg.SeedData, err = getBool("SEED_DATA", true); err != nil {
		return Config{}, err
	}
	if cfg.MetricsEnabled, err = getBool("METRICS_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.WriteRateLimit, err = getInt("WRITE_RATE_LIMIT", 0); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = defaultSQLiteDSN
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER: %s (must be memory, postgres or sqlite)", cfg.StoreDriver)
	}

	if cfg.WriteRateLimit < 0 {
		return Config{}, fmt.Errorf("WRITE_RATE_LIMIT must not be negative, got %d", cfg.WriteRateLimit)
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", cfg.ShutdownTimeout)
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
