package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finprep/finprep/internal/kv"
)

// Repo persists UserProgress as JSON under "progress:<userID>".
type Repo struct {
	store kv.Store
}

// NewRepo creates a Repo backed by store.
func NewRepo(store kv.Store) *Repo {
	return &Repo{store: store}
}

// Load returns the stored progress for userID, or fresh zeroed progress if
// none exists yet.
func (r *Repo) Load(ctx context.Context, userID string) (*UserProgress, error) {
	raw, err := r.store.Get(ctx, kv.ProgressKey(userID))
	if kv.IsNotFound(err) {
		return NewUserProgress(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", userID, err)
	}
	return decode(userID, raw, true)
}

// Save writes p, replacing whatever was stored.
func (r *Repo) Save(ctx context.Context, p *UserProgress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := r.store.Set(ctx, kv.ProgressKey(p.UserID), raw); err != nil {
		return fmt.Errorf("save progress for %s: %w", p.UserID, err)
	}
	return nil
}

// Delete removes a user's progress.
func (r *Repo) Delete(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, kv.ProgressKey(userID)); err != nil {
		return fmt.Errorf("delete progress for %s: %w", userID, err)
	}
	return nil
}

// Update loads, modifies and stores a user's progress as one atomic step
// when the store supports it. fn returns false to skip the write.
func (r *Repo) Update(ctx context.Context, userID string, fn func(p *UserProgress) (bool, error)) (*UserProgress, error) {
	var result *UserProgress
	err := kv.Update(ctx, r.store, kv.ProgressKey(userID), func(old []byte, exists bool) ([]byte, error) {
		p, err := decode(userID, old, exists)
		if err != nil {
			return nil, err
		}
		changed, err := fn(p)
		if err != nil {
			return nil, err
		}
		result = p
		if !changed {
			return nil, nil
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode progress: %w", err)
		}
		return raw, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update progress for %s: %w", userID, err)
	}
	return result, nil
}

func decode(userID string, raw []byte, exists bool) (*UserProgress, error) {
	if !exists {
		return NewUserProgress(userID), nil
	}
	var p UserProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", userID, err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	p.fill()
	return &p, nil
}
