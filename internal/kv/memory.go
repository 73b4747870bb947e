package kv

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

var errClosed = errors.New("store closed")

// Memory is an in-process Store backed by a map. Values are copied on the
// way in and out.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, unavailable("get", key, errClosed)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable("set", key, errClosed)
	}
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, unavailable("list", prefix, errClosed)
	}
	var entries []Entry
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, Entry{Key: k, Value: slices.Clone(v)})
		}
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Key, b.Key)
	})
	return entries, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable("delete", key, errClosed)
	}
	delete(m.data, key)
	return nil
}

// Update runs fn under the store's write lock.
func (m *Memory) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable("update", key, errClosed)
	}
	old, exists := m.data[key]
	next, err := fn(slices.Clone(old), exists)
	if err != nil {
		return err
	}
	if next != nil {
		m.data[key] = slices.Clone(next)
	}
	return nil
}

// Close marks the store closed; later calls fail with ErrUnavailable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
