// Package account owns user and session records in the key-value store.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finprep/finprep/internal/kv"
	"github.com/finprep/finprep/internal/logging"
	"github.com/finprep/finprep/internal/progress"
)

var (
	ErrUserExists      = errors.New("user already exists")
	ErrUserIDTaken     = errors.New("user id already in use")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// DefaultSessionTTL is used when NewService is given a zero TTL.
const DefaultSessionTTL = 72 * time.Hour

// User is a registered learner.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service manages users and their login sessions.
type Service struct {
	store      kv.Store
	progress   *progress.Service
	sessionTTL time.Duration
	now        func() time.Time
}

// NewService creates an account service. Progress records of new users are
// initialised through ps.
func NewService(store kv.Store, ps *progress.Service, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Service{
		store:      store,
		progress:   ps,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}

// Register creates a user and their zeroed progress.
func (s *Service) Register(ctx context.Context, email, name string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now(),
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	err = kv.Update(ctx, s.store, kv.UserKey(email), func(_ []byte, exists bool) ([]byte, error) {
		if exists {
			return nil, ErrUserExists
		}
		return raw, nil
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}

	if _, err := s.progress.Reset(ctx, u.ID); err != nil {
		if derr := s.store.Delete(ctx, kv.UserKey(email)); derr != nil {
			logging.Error("roll back user %s: %v", email, derr)
		}
		return nil, fmt.Errorf("init progress: %w", err)
	}
	logging.Info("registered user %s (%s)", u.ID, email)
	return u, nil
}

// Lookup returns the user registered under email.
func (s *Service) Lookup(ctx context.Context, email string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	raw, err := s.store.Get(ctx, kv.UserKey(email))
	if kv.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", email, err)
	}
	return &u, nil
}

// Users lists every registered user ordered by email.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	entries, err := s.store.List(ctx, kv.UserPrefix)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]User, 0, len(entries))
	for _, e := range entries {
		var u User
		if err := json.Unmarshal(e.Value, &u); err != nil {
			logging.Warn("skipping corrupt user record %s: %v", e.Key, err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// Delete removes a user together with their progress and sessions.
func (s *Service) Delete(ctx context.Context, email string) error {
	u, err := s.Lookup(ctx, email)
	if err != nil {
		return err
	}

	if err := s.deleteSessions(ctx, func(sess *Session) bool { return sess.UserID == u.ID }); err != nil {
		return err
	}
	if err := s.progress.Delete(ctx, u.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, kv.UserKey(u.Email)); err != nil {
		return fmt.Errorf("delete user %s: %w", u.Email, err)
	}
	logging.Info("deleted user %s (%s)", u.ID, u.Email)
	return nil
}
