package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns every store the conformance tests run against. Redis is
// included only when FINPREP_TEST_REDIS_URL points at a disposable server.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	stores := map[string]Store{
		"memory":  NewMemory(),
		"sqlite":  openTestSQLite(t),
		"timeout": WithTimeout(NewMemory(), time.Second),
	}
	if url := os.Getenv("FINPREP_TEST_REDIS_URL"); url != "" {
		r, err := OpenRedis(context.Background(), url, "finprep-test-"+uuid.NewString()+":")
		require.NoError(t, err)
		t.Cleanup(func() { r.Close() })
		stores["redis"] = r
	}
	return stores
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "user:a@example.com")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "user:a@example.com", []byte(`{"id":"1"}`)))
			v, err := s.Get(ctx, "user:a@example.com")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"1"}`, string(v))

			require.NoError(t, s.Set(ctx, "user:a@example.com", []byte(`{"id":"2"}`)))
			v, err = s.Get(ctx, "user:a@example.com")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"2"}`, string(v))

			require.NoError(t, s.Delete(ctx, "user:a@example.com"))
			_, err = s.Get(ctx, "user:a@example.com")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting again is not an error.
			assert.NoError(t, s.Delete(ctx, "user:a@example.com"))
		})
	}
}

func TestStore_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "session:b", []byte("2")))
			require.NoError(t, s.Set(ctx, "session:a", []byte("1")))
			require.NoError(t, s.Set(ctx, "sessionx", []byte("no")))
			require.NoError(t, s.Set(ctx, "user:a", []byte("no")))
			require.NoError(t, s.Set(ctx, "session:*glob", []byte("3")))

			entries, err := s.List(ctx, "session:")
			require.NoError(t, err)

			var keys []string
			for _, e := range entries {
				keys = append(keys, e.Key)
			}
			assert.Equal(t, []string{"session:*glob", "session:a", "session:b"}, keys)
			assert.Equal(t, "1", string(entries[1].Value))

			none, err := s.List(ctx, "progress:")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			const workers = 20
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := Update(ctx, s, "counter", func(old []byte, exists bool) ([]byte, error) {
						n := 0
						if exists {
							fmt.Sscanf(string(old), "%d", &n)
						}
						return []byte(fmt.Sprintf("%d", n+1)), nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			v, err := s.Get(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("%d", workers), string(v))
		})
	}
}

func TestStore_UpdatePassesThroughFuncError(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "k", []byte("v")))
			err := Update(ctx, s, "k", func(old []byte, exists bool) ([]byte, error) {
				assert.True(t, exists)
				assert.Equal(t, "v", string(old))
				return nil, errBoom
			})
			assert.ErrorIs(t, err, errBoom)
			assert.False(t, IsUnavailable(err))

			v, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v", string(v))
		})
	}
}

func TestMemory_ClosedIsUnavailable(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, err := m.Get(context.Background(), "k")
	assert.True(t, IsUnavailable(err))
	assert.False(t, IsNotFound(err))

	err = m.Set(context.Background(), "k", []byte("v"))
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "set", ue.Op)
	assert.Equal(t, "k", ue.Key)
}

// slowStore blocks until the context is done.
type slowStore struct{ *Memory }

func (s *slowStore) Get(ctx context.Context, key string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout_DeadlineIsUnavailable(t *testing.T) {
	s := WithTimeout(&slowStore{Memory: NewMemory()}, 10*time.Millisecond)
	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeout_ZeroIsIdentity(t *testing.T) {
	m := NewMemory()
	assert.Same(t, Store(m), WithTimeout(m, 0))
}

func TestSQLite_PragmasApplied(t *testing.T) {
	s := openTestSQLite(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"busy_timeout", "5000"},
		{"synchronous", "1"}, // NORMAL = 1
	}
	for _, tt := range tests {
		var got string
		err := s.DB().QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSQLite_RevisionCountsWrites(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	rev, err := s.Revision(ctx, "progress:u1")
	require.NoError(t, err)
	assert.Zero(t, rev)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Set(ctx, "progress:u1", []byte("{}")))
	}
	rev, err = s.Revision(ctx, "progress:u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, rev)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "user:x", []byte("x")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, "user:x")
	require.NoError(t, err)
	assert.Equal(t, "x", string(v))
}

func TestDefaultDBPath_EnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "nested", "custom.db")
	t.Setenv("FINPREP_DB", want)

	got, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.DirExists(t, filepath.Dir(want))
}

func TestDefaultDBPath_XDG(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("FINPREP_DB", "")
	t.Setenv("XDG_DATA_HOME", dataHome)

	got, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataHome, "finprep", "finprep.db"), got)
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Backend: BackendSQLite, DBPath: filepath.Join(t.TempDir(), "a", "b.db"), Timeout: time.Second})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &timeoutStore{}, s)

	_, err = Open(ctx, Options{Backend: BackendRedis})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:ann@example.com", UserKey("  Ann@Example.com "))
	assert.Equal(t, "progress:42", ProgressKey("42"))
	assert.Equal(t, "session:tok", SessionKey("tok"))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `ns:session:\*\?\[x\]\\`, escapeGlob(`ns:session:*?[x]\`))
}

func TestNsPrefix(t *testing.T) {
	assert.Equal(t, "", nsPrefix(""))
	assert.Equal(t, "finprep:", nsPrefix("finprep"))
	assert.Equal(t, "finprep:", nsPrefix("finprep:"))
}

func TestRedis_UpdateConflictIsUnavailable(t *testing.T) {
	url := os.Getenv("FINPREP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FINPREP_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := OpenRedis(ctx, url, "finprep-test-"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	// Every attempt writes the watched key from outside the transaction,
	// so the optimistic lock never holds.
	attempts := 0
	err = r.Update(ctx, "progress:u1", func(_ []byte, _ bool) ([]byte, error) {
		attempts++
		if err := r.client.Set(ctx, r.key("progress:u1"), fmt.Sprint(attempts), 0).Err(); err != nil {
			return nil, err
		}
		return []byte("mine"), nil
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsUnavailable(err), "conflict should match ErrUnavailable, got %v", err)
	assert.Equal(t, maxUpdateRetries, attempts)
}

func TestUnavailable_WrapsConflict(t *testing.T) {
	err := unavailable("update", "progress:u1", ErrConflict)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsUnavailable(err))
}
