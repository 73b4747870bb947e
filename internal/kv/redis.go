package kv

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/finprep/finprep/internal/logging"
)

// maxUpdateRetries bounds optimistic-lock retries in Redis.Update.
const maxUpdateRetries = 16

// ErrConflict is returned by Redis.Update when the key kept changing under
// the transaction. It is wrapped in an UnavailableError, so it also matches
// ErrUnavailable.
var ErrConflict = errors.New("kv: too many concurrent writers")

// Redis is a Store backed by a Redis server. All keys are stored under an
// optional namespace prefix so several deployments can share a server.
type Redis struct {
	client    *redis.Client
	namespace string
}

// OpenRedis connects to the server at url (redis://[:password@]host:port/db)
// and verifies the connection with PING.
func OpenRedis(ctx context.Context, url, namespace string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable("ping", "", err)
	}
	logging.Debug("connected to redis at %s (namespace %q)", opt.Addr, namespace)
	return NewRedis(client, namespace), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: nsPrefix(namespace)}
}

// nsPrefix turns a namespace into the prefix put in front of every key.
func nsPrefix(namespace string) string {
	if namespace == "" || strings.HasSuffix(namespace, ":") {
		return namespace
	}
	return namespace + ":"
}

func (r *Redis) key(k string) string {
	return r.namespace + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	logging.Store("get %s", key)
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	logging.Store("set %s (%d bytes)", key, len(value))
	return unavailable("set", key, r.client.Set(ctx, r.key(key), value, 0).Err())
}

func (r *Redis) List(ctx context.Context, prefix string) ([]Entry, error) {
	logging.Store("list %s*", prefix)
	match := escapeGlob(r.key(prefix)) + "*"

	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, match, 256).Result()
		if err != nil {
			return nil, unavailable("list", prefix, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("list", prefix, err)
	}

	entries := make([]Entry, 0, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // deleted between SCAN and MGET
		}
		entries = append(entries, Entry{
			Key:   strings.TrimPrefix(keys[i], r.namespace),
			Value: []byte(s),
		})
	}
	return entries, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	logging.Store("delete %s", key)
	return unavailable("delete", key, r.client.Del(ctx, r.key(key)).Err())
}

// Update applies fn under WATCH/MULTI, retrying when another client writes
// the key between the read and the commit.
func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	logging.Store("update %s", key)
	k := r.key(key)

	var fnErr error
	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, k).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		next, err := fn(old, exists)
		if err != nil {
			fnErr = err
			return err
		}
		if next == nil {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		fnErr = nil
		err := r.client.Watch(ctx, txf, k)
		switch {
		case err == nil:
			return nil
		case fnErr != nil:
			return fnErr
		case errors.Is(err, redis.TxFailedErr):
			logging.Debug("update %s: optimistic lock lost, retry %d", key, i+1)
			continue
		default:
			return unavailable("update", key, err)
		}
	}
	return unavailable("update", key, ErrConflict)
}

// Close closes the client connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// escapeGlob escapes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
