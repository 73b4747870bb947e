package catalog

import "strings"

// Topic is a finance-concept category that partitions the catalog.
type Topic string

const (
	TopicTimeValue   Topic = "time-value-of-money"
	TopicPortfolio   Topic = "portfolio-theory"
	TopicBonds       Topic = "bond-valuation"
	TopicStatements  Topic = "financial-statements"
	TopicDerivatives Topic = "derivatives"
)

// AllTopics returns all topics in display order.
func AllTopics() []Topic {
	return []Topic{
		TopicTimeValue,
		TopicPortfolio,
		TopicBonds,
		TopicStatements,
		TopicDerivatives,
	}
}

// DisplayName returns a human-readable name for a topic.
func (t Topic) DisplayName() string {
	switch t {
	case TopicTimeValue:
		return "Time Value of Money"
	case TopicPortfolio:
		return "Portfolio Theory"
	case TopicBonds:
		return "Bond Valuation"
	case TopicStatements:
		return "Financial Statements"
	case TopicDerivatives:
		return "Derivatives"
	default:
		return string(t)
	}
}

// Valid reports whether t is one of the known topics.
func (t Topic) Valid() bool {
	for _, known := range AllTopics() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTopic accepts either a topic slug ("bond-valuation") or its display
// name ("Bond Valuation"), case-insensitively.
func ParseTopic(s string) (Topic, bool) {
	s = strings.TrimSpace(s)
	for _, t := range AllTopics() {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.DisplayName()) {
			return t, true
		}
	}
	return "", false
}

// Difficulty grades a problem: 0 beginner, 1 intermediate, 2 and above advanced.
type Difficulty int

const (
	Beginner Difficulty = iota
	Intermediate
	Advanced
)

// Label returns the display label for a difficulty.
func (d Difficulty) Label() string {
	switch {
	case d <= Beginner:
		return "Beginner"
	case d == Intermediate:
		return "Intermediate"
	default:
		return "Advanced"
	}
}
