package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a store backend.
type Options struct {
	Backend string

	// DBPath is the SQLite database file. Empty means DefaultDBPath().
	DBPath string

	// RedisURL and RedisNamespace configure the Redis backend.
	RedisURL       string
	RedisNamespace string

	// Timeout bounds each store call. Zero disables the bound.
	Timeout time.Duration
}

// Open builds the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)

	switch opts.Backend {
	case BackendSQLite, "":
		path := opts.DBPath
		if path == "" {
			if path, err = DefaultDBPath(); err != nil {
				return nil, fmt.Errorf("resolve DB path: %w", err)
			}
		} else if err = EnsureDir(path); err != nil {
			return nil, fmt.Errorf("create DB dir: %w", err)
		}
		s, err = OpenSQLite(path)
	case BackendRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("redis backend requires a URL")
		}
		s, err = OpenRedis(ctx, opts.RedisURL, opts.RedisNamespace)
	case BackendMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store backend: %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(s, opts.Timeout), nil
}
