// Package kv defines the key-value store the engine persists users, sessions
// and progress in, together with its SQLite, Redis and in-memory backends.
package kv

import (
	"context"
	"strings"
)

// Entry is a single key/value pair returned by List.
type Entry struct {
	Key   string
	Value []byte
}

// Store is an opaque key-value store. Keys are namespaced strings such as
// "user:<email>", "progress:<userID>" and "session:<token>".
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// List returns all entries whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection.
	Close() error
}

// UpdateFunc computes the new value for a key from its current value.
// exists is false when the key is absent. Returning a nil value with a nil
// error leaves the key untouched.
type UpdateFunc func(old []byte, exists bool) ([]byte, error)

// Updater is implemented by stores that can run a read-modify-write
// atomically with respect to other writers of the same key.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Key namespaces.
const (
	UserPrefix     = "user:"
	ProgressPrefix = "progress:"
	SessionPrefix  = "session:"
)

// UserKey returns the key for a user record. Emails are case-insensitive.
func UserKey(email string) string {
	return UserPrefix + strings.ToLower(strings.TrimSpace(email))
}

// ProgressKey returns the key holding a user's progress.
func ProgressKey(userID string) string {
	return ProgressPrefix + userID
}

// SessionKey returns the key for a session token.
func SessionKey(token string) string {
	return SessionPrefix + token
}

// Update runs fn atomically when s implements Updater, and as a plain
// Get-then-Set otherwise. Callers that need atomicity on plain stores must
// serialize access themselves.
func Update(ctx context.Context, s Store, key string, fn UpdateFunc) error {
	if u, ok := s.(Updater); ok {
		return u.Update(ctx, key, fn)
	}

	old, err := s.Get(ctx, key)
	exists := true
	if err != nil {
		if !IsNotFound(err) {
			return err
		}
		exists = false
	}

	next, err := fn(old, exists)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return s.Set(ctx, key, next)
}
