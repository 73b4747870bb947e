package account

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/finprep/finprep/internal/kv"
	"github.com/finprep/finprep/internal/logging"
	"github.com/finprep/finprep/internal/progress"
)

// BackupVersion is bumped when the Backup layout changes.
const BackupVersion = 1

// Backup is a portable copy of one user's records. Sessions are not
// included.
type Backup struct {
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exportedAt"`
	User       User                   `json:"user"`
	Progress   *progress.UserProgress `json:"progress"`
}

// Export collects the user and progress records of email.
func (s *Service) Export(ctx context.Context, email string) (*Backup, error) {
	u, err := s.Lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	p, err := s.progress.Load(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Backup{
		Version:    BackupVersion,
		ExportedAt: s.now(),
		User:       *u,
		Progress:   p,
	}, nil
}

// Import restores a backup. It fails with ErrUserExists if the email is
// already registered and with ErrUserIDTaken if another user has the
// backup's id. Completed ids unknown to the catalog are dropped.
func (s *Service) Import(ctx context.Context, b *Backup) error {
	if b.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %d", b.Version)
	}
	email, err := normalizeEmail(b.User.Email)
	if err != nil {
		return err
	}
	if b.User.ID == "" {
		return fmt.Errorf("backup has no user id")
	}
	users, err := s.Users(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.Email == email {
			return fmt.Errorf("import %s: %w", email, ErrUserExists)
		}
		if existing.ID == b.User.ID {
			return fmt.Errorf("import %s: %w: %s", email, ErrUserIDTaken, b.User.ID)
		}
	}

	u := b.User
	u.Email = email
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	err = kv.Update(ctx, s.store, kv.UserKey(email), func(_ []byte, exists bool) ([]byte, error) {
		if exists {
			return nil, ErrUserExists
		}
		return raw, nil
	})
	if err != nil {
		return fmt.Errorf("import %s: %w", email, err)
	}

	p := b.Progress
	if p == nil {
		p = progress.NewUserProgress(u.ID)
	}
	p.UserID = u.ID
	if err := s.progress.Save(ctx, p); err != nil {
		if derr := s.store.Delete(ctx, kv.UserKey(email)); derr != nil {
			logging.Error("roll back user %s: %v", email, derr)
		}
		return err
	}
	logging.Info("imported user %s (%s)", u.ID, email)
	return nil
}

// WriteBackup encodes b as indented JSON.
func WriteBackup(w io.Writer, b *Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// ReadBackup decodes a backup written by WriteBackup.
func ReadBackup(r io.Reader) (*Backup, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &b, nil
}
