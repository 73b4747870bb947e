package progress

import (
	"slices"
	"time"

	"github.com/finprep/finprep/internal/catalog"
)

// PracticeResult is the outcome of one submitted answer. Results are folded
// into TopicProgress and never stored individually.
type PracticeResult struct {
	ProblemID  string `json:"problemId"`
	Correct    bool   `json:"correct"`
	UserAnswer string `json:"userAnswer"`
	TimeSpent  int    `json:"timeSpent"` // seconds
	HintsUsed  int    `json:"hintsUsed"`
}

// TopicProgress tracks a user's progress on one topic.
type TopicProgress struct {
	// Completed holds the ids answered correctly at least once, in the
	// order they were first completed.
	Completed []string `json:"completed"`

	// Accuracy is correct/total of the most recent scored batch. It is
	// replaced on every update, not blended with earlier batches.
	Accuracy float64 `json:"accuracy"`

	// Attempts and Correct count every scored result over the lifetime.
	Attempts int `json:"attempts"`
	Correct  int `json:"correct"`

	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// IsCompleted reports whether id is in the completed set.
func (tp *TopicProgress) IsCompleted(id string) bool {
	return slices.Contains(tp.Completed, id)
}

// LifetimeAccuracy returns Correct / Attempts, or 0 before any attempt.
func (tp *TopicProgress) LifetimeAccuracy() float64 {
	if tp.Attempts == 0 {
		return 0
	}
	return float64(tp.Correct) / float64(tp.Attempts)
}

// Record folds a batch of results into the progress. Correct answers to
// problems accepted by belongs are added to the completed set once.
// An empty batch changes nothing and returns false.
func (tp *TopicProgress) Record(results []PracticeResult, belongs func(id string) bool, now time.Time) bool {
	if len(results) == 0 {
		return false
	}

	correct := 0
	for _, r := range results {
		if !r.Correct {
			continue
		}
		correct++
		if belongs(r.ProblemID) && !tp.IsCompleted(r.ProblemID) {
			tp.Completed = append(tp.Completed, r.ProblemID)
		}
	}

	tp.Accuracy = float64(correct) / float64(len(results))
	tp.Attempts += len(results)
	tp.Correct += correct
	tp.UpdatedAt = now
	return true
}

// Clone returns a deep copy.
func (tp *TopicProgress) Clone() *TopicProgress {
	c := *tp
	c.Completed = slices.Clone(tp.Completed)
	return &c
}

// UserProgress is the per-topic progress of one user. Topics always holds
// an entry for every known topic.
type UserProgress struct {
	UserID    string                           `json:"userId"`
	Topics    map[catalog.Topic]*TopicProgress `json:"topics"`
	UpdatedAt time.Time                        `json:"updatedAt,omitzero"`
}

// NewUserProgress returns zeroed progress with an entry for every topic.
func NewUserProgress(userID string) *UserProgress {
	p := &UserProgress{
		UserID: userID,
		Topics: make(map[catalog.Topic]*TopicProgress),
	}
	p.fill()
	return p
}

// fill adds zeroed entries for topics missing from p, e.g. after a topic
// was added to the catalog.
func (p *UserProgress) fill() {
	if p.Topics == nil {
		p.Topics = make(map[catalog.Topic]*TopicProgress)
	}
	for _, t := range catalog.AllTopics() {
		if p.Topics[t] == nil {
			p.Topics[t] = &TopicProgress{Completed: []string{}}
		}
	}
}

// prune drops topics outside the known set and completed ids that are not
// catalog problems of their topic. Duplicate ids are collapsed.
func (p *UserProgress) prune(c *catalog.Catalog) {
	for t, tp := range p.Topics {
		if !t.Valid() {
			delete(p.Topics, t)
			continue
		}
		if tp == nil {
			continue
		}
		kept := make([]string, 0, len(tp.Completed))
		for _, id := range tp.Completed {
			if c.Contains(t, id) && !slices.Contains(kept, id) {
				kept = append(kept, id)
			}
		}
		tp.Completed = kept
	}
	p.fill()
}

// Topic returns the progress entry for t.
func (p *UserProgress) Topic(t catalog.Topic) *TopicProgress {
	tp, ok := p.Topics[t]
	if !ok {
		tp = &TopicProgress{Completed: []string{}}
		p.Topics[t] = tp
	}
	return tp
}

// CompletedSet returns the completed ids of topic t as a set.
func (p *UserProgress) CompletedSet(t catalog.Topic) map[string]bool {
	set := make(map[string]bool)
	if tp, ok := p.Topics[t]; ok {
		for _, id := range tp.Completed {
			set[id] = true
		}
	}
	return set
}
