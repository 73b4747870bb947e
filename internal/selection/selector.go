// Package selection builds practice sets and diagnostic tests from the
// problem catalog. Selection is pure: it reads the catalog and the caller's
// completed set and never touches storage.
package selection

import (
	"math/rand/v2"
	"sync"

	"github.com/finprep/finprep/internal/catalog"
)

// Selector picks problems from a catalog.
type Selector struct {
	catalog *catalog.Catalog

	mu  sync.Mutex
	rng *rand.Rand // nil means the global source
}

// Option configures a Selector.
type Option func(*Selector)

// WithSeed makes shuffles reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Selector) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand uses r for all shuffles.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) {
		s.rng = r
	}
}

// New creates a Selector over c.
func New(c *catalog.Catalog, opts ...Option) *Selector {
	s := &Selector{catalog: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectProblems returns up to count problems of topic, about 70% of them
// not yet in completed and the rest drawn from completed for review.
func (s *Selector) SelectProblems(topic catalog.Topic, completed map[string]bool, count int) []catalog.Problem {
	return s.SelectPlan(topic, completed, count).Problems()
}

// SelectPlan is SelectProblems with each problem labelled unseen or review.
//
// The target mix is ceil(count*0.7) unseen and the remainder review. Both
// partitions are shuffled independently, each contributes up to its target,
// and when one partition runs short the other fills the gap from its
// leftovers. The combined set is shuffled again. If the topic has fewer than
// count problems, all of them are returned.
func (s *Selector) SelectPlan(topic catalog.Topic, completed map[string]bool, count int) *Plan {
	if count <= 0 {
		count = DefaultCount
	}

	var unseen, review []Slot
	for _, p := range s.catalog.ByTopic(topic) {
		if completed[p.ID] {
			review = append(review, Slot{Problem: p, Category: CategoryReview})
		} else {
			unseen = append(unseen, Slot{Problem: p, Category: CategoryUnseen})
		}
	}

	targetUnseen, targetReview := splitTargets(count)

	shuffle(s, unseen)
	shuffle(s, review)

	takeUnseen := min(targetUnseen, len(unseen))
	takeReview := min(targetReview, len(review))

	// Redistribute unused slots to whichever partition has leftovers.
	if short := count - takeUnseen - takeReview; short > 0 {
		extra := min(short, len(unseen)-takeUnseen)
		takeUnseen += extra
		short -= extra
		takeReview += min(short, len(review)-takeReview)
	}

	slots := make([]Slot, 0, takeUnseen+takeReview)
	slots = append(slots, unseen[:takeUnseen]...)
	slots = append(slots, review[:takeReview]...)
	shuffle(s, slots)

	if len(slots) > count {
		slots = slots[:count]
	}
	return &Plan{Topic: topic, Slots: slots}
}

// splitTargets returns ceil(count*0.7) and the remainder, in integer
// arithmetic so exact multiples don't round up.
func splitTargets(count int) (unseen, review int) {
	unseen = (count*7 + 9) / 10
	return unseen, count - unseen
}

// CreateDiagnosticTest samples up to DiagnosticPerTopic problems from each
// diagnostic topic and returns them interleaved in random order.
func (s *Selector) CreateDiagnosticTest() []catalog.Problem {
	var out []catalog.Problem
	for _, topic := range DiagnosticTopics() {
		problems := s.catalog.ByTopic(topic)
		shuffle(s, problems)
		out = append(out, problems[:min(DiagnosticPerTopic, len(problems))]...)
	}
	shuffle(s, out)
	return out
}

// shuffle permutes xs uniformly (Fisher-Yates).
func shuffle[T any](s *Selector, xs []T) {
	swap := func(i, j int) { xs[i], xs[j] = xs[j], xs[i] }
	if s.rng == nil {
		rand.Shuffle(len(xs), swap)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(xs), swap)
}
