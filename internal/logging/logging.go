// Package logging provides leveled, prefix-tagged log helpers on top of the
// standard logger. Output goes to stderr so command output on stdout stays
// machine-readable.
package logging

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	verbose atomic.Bool
	logger  = log.New(os.Stderr, "", log.LstdFlags)
)

// SetVerbose enables or disables Debug and Store output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbose reports whether verbose output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// SetOutput redirects all log output. Used by tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Info(msg string, args ...any) {
	logger.Printf("[INFO] "+msg, args...)
}

func Warn(msg string, args ...any) {
	logger.Printf("[WARN] "+msg, args...)
}

func Error(msg string, args ...any) {
	logger.Printf("[ERROR] "+msg, args...)
}

// Debug logs only when verbose mode is enabled.
func Debug(msg string, args ...any) {
	if verbose.Load() {
		logger.Printf("[DEBUG] "+msg, args...)
	}
}

// Store logs key-value store activity when verbose mode is enabled.
func Store(msg string, args ...any) {
	if verbose.Load() {
		logger.Printf("[STORE] "+msg, args...)
	}
}
