// Package progress folds practice results into per-user, per-topic progress
// and persists it in the key-value store.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/finprep/finprep/internal/catalog"
	"github.com/finprep/finprep/internal/kv"
	"github.com/finprep/finprep/internal/logging"
)

// ErrUnknownTopic is returned for a topic outside the known set.
var ErrUnknownTopic = errors.New("unknown topic")

// Service updates and reads user progress.
//
// Updates for the same user are serialized in-process, and stores that
// implement kv.Updater make each read-modify-write atomic across
// processes as well.
type Service struct {
	repo    *Repo
	catalog *catalog.Catalog
	locks   userLocks
	now     func() time.Time
}

// NewService creates a progress service over store and catalog c.
func NewService(store kv.Store, c *catalog.Catalog) *Service {
	return &Service{
		repo:    NewRepo(store),
		catalog: c,
		locks:   userLocks{locks: make(map[string]*userLock)},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Load returns a user's progress, initialising it if none exists.
func (s *Service) Load(ctx context.Context, userID string) (*UserProgress, error) {
	return s.repo.Load(ctx, userID)
}

// UpdateTopicProgress folds results into the user's progress for topic and
// returns the updated topic entry.
//
// Correct answers add their problem id to the completed set once; ids that
// are not catalog problems of topic are not added. Accuracy is replaced by
// the accuracy of this batch. An empty batch leaves progress untouched and
// writes nothing.
func (s *Service) UpdateTopicProgress(ctx context.Context, userID string, topic catalog.Topic, results []PracticeResult) (*TopicProgress, error) {
	if !topic.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	belongs := func(id string) bool { return s.catalog.Contains(topic, id) }

	p, err := s.repo.Update(ctx, userID, func(p *UserProgress) (bool, error) {
		now := s.now()
		if !p.Topic(topic).Record(results, belongs, now) {
			return false, nil
		}
		p.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		logging.Error("update progress user=%s topic=%s: %v", userID, topic, err)
		return nil, err
	}

	tp := p.Topic(topic)
	logging.Debug("progress user=%s topic=%s batch=%d accuracy=%.2f completed=%d",
		userID, topic, len(results), tp.Accuracy, len(tp.Completed))
	return tp.Clone(), nil
}

// Reset replaces a user's progress with zeroed progress for every topic.
func (s *Service) Reset(ctx context.Context, userID string) (*UserProgress, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	p := NewUserProgress(userID)
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a user's progress entirely.
func (s *Service) Delete(ctx context.Context, userID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.repo.Delete(ctx, userID)
}

// Save stores p, e.g. when restoring a backup. Completed ids that are not
// catalog problems of their topic are dropped first.
func (s *Service) Save(ctx context.Context, p *UserProgress) error {
	unlock := s.locks.lock(p.UserID)
	defer unlock()
	p.prune(s.catalog)
	return s.repo.Save(ctx, p)
}

// userLocks hands out one mutex per user, dropping it once unused.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// lock acquires userID's mutex and returns its release func.
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
