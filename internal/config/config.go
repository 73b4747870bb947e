// Package config resolves runtime settings from defaults, the environment
// and an optional .env file.
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

	"github.com/finprep/finprep/internal/kv"
)

// Config holds all engine configuration.
type Config struct {
	Store StoreConfig

	// SessionTTL is how long a login session stays valid. Default: 72h.
	SessionTTL time.Duration

	// Verbose enables debug and store logging.
	Verbose bool
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	// Backend is one of "sqlite", "redis" or "memory".
	Backend string

	DBPath      string // SQLite file. Empty means the XDG default.
	RedisURL    string // e.g. redis://localhost:6379/0
	RedisPrefix string // Key namespace inside Redis. Default: "finprep"

	// Timeout bounds each store call. Default: 5s.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:     kv.BackendSQLite,
			RedisPrefix: "finprep",
			Timeout:     5 * time.Second,
		},
		SessionTTL: 72 * time.Hour,
	}
}

// LoadDotEnv loads variables from the given .env files, or ./.env when
// none are given. Missing files are ignored; variables already set in the
// environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv builds a Config from FINPREP_* environment variables, falling
// back to defaults for unset values. Malformed values are errors.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if b := os.Getenv("FINPREP_STORE"); b != "" {
		cfg.Store.Backend = strings.ToLower(b)
	}
	if p := os.Getenv("FINPREP_DB"); p != "" {
		cfg.Store.DBPath = p
	}
	if u := os.Getenv("FINPREP_REDIS_URL"); u != "" {
		cfg.Store.RedisURL = u
	}
	if p := os.Getenv("FINPREP_REDIS_PREFIX"); p != "" {
		cfg.Store.RedisPrefix = p
	}

	if v := os.Getenv("FINPREP_STORE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("FINPREP_STORE_TIMEOUT: %w", err)
		}
		cfg.Store.Timeout = d
	}
	if v := os.Getenv("FINPREP_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("FINPREP_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("FINPREP_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("FINPREP_VERBOSE: %w", err)
		}
		cfg.Verbose = b
	}

	return cfg, nil
}

// Validate checks that the selected backend is fully configured.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case kv.BackendSQLite, kv.BackendMemory:
	case kv.BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("FINPREP_REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if c.Store.Timeout < 0 {
		return fmt.Errorf("store timeout must not be negative, got %s", c.Store.Timeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// StoreOptions converts the store section into kv.Open options.
func (c Config) StoreOptions() kv.Options {
	return kv.Options{
		Backend:        c.Store.Backend,
		DBPath:         c.Store.DBPath,
		RedisURL:       c.Store.RedisURL,
		RedisNamespace: c.Store.RedisPrefix,
		Timeout:        c.Store.Timeout,
	}
}
