package selection

import "github.com/finprep/finprep/internal/catalog"

// Category records why a problem was included in a practice set.
type Category string

const (
	CategoryUnseen Category = "unseen"
	CategoryReview Category = "review"
)

// Slot is a single problem in a practice set together with its category.
type Slot struct {
	Problem  catalog.Problem
	Category Category
}

// Plan is the ordered practice set for one topic.
type Plan struct {
	Topic catalog.Topic
	Slots []Slot
}

// Problems returns the plan's problems in order.
func (p *Plan) Problems() []catalog.Problem {
	out := make([]catalog.Problem, 0, len(p.Slots))
	for _, s := range p.Slots {
		out = append(out, s.Problem)
	}
	return out
}

// Count returns how many slots belong to category c.
func (p *Plan) Count(c Category) int {
	n := 0
	for _, s := range p.Slots {
		if s.Category == c {
			n++
		}
	}
	return n
}

// DefaultCount is the practice set size used when none is requested.
const DefaultCount = 10

// DiagnosticPerTopic is the number of problems each topic contributes to a
// diagnostic test.
const DiagnosticPerTopic = 5

// DiagnosticTopics returns the fixed topics a diagnostic test samples.
func DiagnosticTopics() []catalog.Topic {
	return []catalog.Topic{
		catalog.TopicTimeValue,
		catalog.TopicPortfolio,
		catalog.TopicBonds,
		catalog.TopicStatements,
		catalog.TopicDerivatives,
	}
}
