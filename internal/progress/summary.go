package progress

import "github.com/finprep/finprep/internal/catalog"

// TopicSummary is a read-only view of one topic's progress against the
// catalog.
type TopicSummary struct {
	Topic            catalog.Topic
	Completed        int
	Total            int
	Accuracy         float64 // last batch
	LifetimeAccuracy float64
	Attempts         int
}

// CompletionRatio returns Completed / Total, or 0 for an empty topic.
func (ts TopicSummary) CompletionRatio() float64 {
	if ts.Total == 0 {
		return 0
	}
	return float64(ts.Completed) / float64(ts.Total)
}

// Summary aggregates progress across topics.
type Summary struct {
	Topics []TopicSummary

	// Overall totals; Overall.Topic is empty and Overall.Accuracy is the
	// attempt-weighted lifetime accuracy.
	Overall TopicSummary
}

// Summarize builds a per-topic summary of p in topic display order.
// Completed counts only ids that are still in the catalog.
func Summarize(p *UserProgress, c *catalog.Catalog) Summary {
	var s Summary
	correct := 0
	for _, t := range catalog.AllTopics() {
		tp := p.Topics[t]
		if tp == nil {
			tp = &TopicProgress{}
		}
		completed := 0
		for _, id := range tp.Completed {
			if c.Contains(t, id) {
				completed++
			}
		}
		ts := TopicSummary{
			Topic:            t,
			Completed:        completed,
			Total:            c.Count(t),
			Accuracy:         tp.Accuracy,
			LifetimeAccuracy: tp.LifetimeAccuracy(),
			Attempts:         tp.Attempts,
		}
		s.Topics = append(s.Topics, ts)

		s.Overall.Completed += ts.Completed
		s.Overall.Total += ts.Total
		s.Overall.Attempts += ts.Attempts
		correct += tp.Correct
	}
	if s.Overall.Attempts > 0 {
		s.Overall.LifetimeAccuracy = float64(correct) / float64(s.Overall.Attempts)
		s.Overall.Accuracy = s.Overall.LifetimeAccuracy
	}
	return s
}
