package account

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finprep/finprep/internal/kv"
	"github.com/finprep/finprep/internal/logging"
)

// Session is an opaque login token bound to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	IPAddress string    `json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Login opens a session for the user registered under email.
func (s *Service) Login(ctx context.Context, email, ip string) (*Session, error) {
	u, err := s.Lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		IPAddress: ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Set(ctx, kv.SessionKey(sess.Token), raw); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	logging.Debug("session opened user=%s expires=%s", u.ID, sess.ExpiresAt.Format(time.RFC3339))
	return sess, nil
}

// Authenticate returns the live session for token. An expired session is
// deleted on first access.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, ErrSessionNotFound
	}
	raw, err := s.store.Get(ctx, kv.SessionKey(token))
	if kv.IsNotFound(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.Expired(s.now()) {
		if err := s.store.Delete(ctx, kv.SessionKey(token)); err != nil {
			logging.Warn("delete expired session: %v", err)
		}
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// Logout ends a session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, kv.SessionKey(token)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired session and returns how many were
// removed.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	now := s.now()
	n := 0
	err := s.eachSession(ctx, func(key string, sess *Session) error {
		if !sess.Expired(now) {
			return nil
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("purge session: %w", err)
		}
		n++
		return nil
	})
	if n > 0 {
		logging.Info("purged %d expired sessions", n)
	}
	return n, err
}

// Sessions returns the stored sessions of userID.
func (s *Service) Sessions(ctx context.Context, userID string) ([]Session, error) {
	var out []Session
	err := s.eachSession(ctx, func(_ string, sess *Session) error {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
		return nil
	})
	return out, err
}

func (s *Service) deleteSessions(ctx context.Context, match func(*Session) bool) error {
	return s.eachSession(ctx, func(key string, sess *Session) error {
		if !match(sess) {
			return nil
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

func (s *Service) eachSession(ctx context.Context, fn func(key string, sess *Session) error) error {
	entries, err := s.store.List(ctx, kv.SessionPrefix)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, e := range entries {
		var sess Session
		if err := json.Unmarshal(e.Value, &sess); err != nil {
			logging.Warn("skipping corrupt session %s: %v", e.Key, err)
			continue
		}
		if err := fn(e.Key, &sess); err != nil {
			return err
		}
	}
	return nil
}
