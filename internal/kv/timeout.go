package kv

import (
	"context"
	"errors"
	"time"
)

// timeoutStore is a decorator that bounds every call with a deadline.
type timeoutStore struct {
	inner   Store
	timeout time.Duration
}

// WithTimeout wraps s so each operation runs with at most d. A deadline hit
// surfaces as ErrUnavailable. d <= 0 returns s unchanged.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{inner: s, timeout: d}
}

func (t *timeoutStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	v, err := t.inner.Get(ctx, key)
	return v, unavailable("get", key, err)
}

func (t *timeoutStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return unavailable("set", key, t.inner.Set(ctx, key, value))
}

func (t *timeoutStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	entries, err := t.inner.List(ctx, prefix)
	return entries, unavailable("list", prefix, err)
}

func (t *timeoutStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return unavailable("delete", key, t.inner.Delete(ctx, key))
}

// Update forwards to the inner store so atomicity is preserved. Errors
// returned by fn itself pass through unchanged.
func (t *timeoutStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var fnErr error
	err := Update(ctx, t.inner, key, func(old []byte, exists bool) ([]byte, error) {
		next, err := fn(old, exists)
		fnErr = err
		return next, err
	})
	if fnErr != nil && errors.Is(err, fnErr) {
		return err
	}
	return unavailable("update", key, err)
}

func (t *timeoutStore) Close() error {
	return t.inner.Close()
}
