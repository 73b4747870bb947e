package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/finprep/finprep/internal/logging"
)

// SQLite is a Store backed by a single SQLite table.
type SQLite struct {
	// mu serializes read-modify-write cycles within the process. The
	// transaction makes them atomic at the database level.
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn, applies pragmas and
// creates the kv table.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps pragmas in effect and lets the process-level
	// mutex fully serialize writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		revision INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	logging.Debug("opened sqlite store at %s", dsn)
	return &SQLite{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	logging.Store("get %s", key)
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", key, err)
	}
	return v, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	logging.Store("set %s (%d bytes)", key, len(value))
	_, err := s.db.ExecContext(ctx, upsertSQL, key, value, time.Now().UTC())
	return unavailable("set", key, err)
}

func (s *SQLite) List(ctx context.Context, prefix string) ([]Entry, error) {
	logging.Store("list %s*", prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		utf8.RuneCountInString(prefix), prefix,
	)
	if err != nil {
		return nil, unavailable("list", prefix, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, unavailable("list", prefix, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", prefix, err)
	}
	return entries, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	logging.Store("delete %s", key)
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return unavailable("delete", key, err)
}

// Update runs fn inside a transaction. Errors returned by fn are passed
// through unwrapped and roll the transaction back.
func (s *SQLite) Update(ctx context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.Store("update %s", key)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("update", key, err)
	}
	defer tx.Rollback()

	var old []byte
	exists := true
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return unavailable("update", key, err)
	}

	next, err := fn(old, exists)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	if _, err := tx.ExecContext(ctx, upsertSQL, key, next, time.Now().UTC()); err != nil {
		return unavailable("update", key, err)
	}
	return unavailable("update", key, tx.Commit())
}

// Revision returns how many times key has been written, or 0 if absent.
func (s *SQLite) Revision(ctx context.Context, key string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM kv WHERE key = ?`, key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, unavailable("revision", key, err)
	}
	return rev, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const upsertSQL = `INSERT INTO kv (key, value, revision, updated_at) VALUES (?, ?, 1, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		revision = kv.revision + 1,
		updated_at = excluded.updated_at`

// applyPragmas configures SQLite for a single-writer workload.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. FINPREP_DB environment variable
// 2. $XDG_DATA_HOME/finprep/finprep.db
// 3. ~/.local/share/finprep/finprep.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("FINPREP_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "finprep", "finprep.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
