package kv

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// ErrUnavailable matches any failure of the underlying store (I/O errors,
// timeouts, lost connections). Use errors.Is(err, ErrUnavailable).
var ErrUnavailable = errors.New("kv: store unavailable")

// UnavailableError wraps a backend failure with the operation and key that
// triggered it.
type UnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("kv %s %q: store unavailable: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("kv %s: store unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is reports ErrUnavailable as a match so callers don't need errors.As.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// unavailable wraps err as an UnavailableError, leaving nil and ErrNotFound alone.
func unavailable(op, key string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Op: op, Key: key, Err: err}
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether err is a store failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
