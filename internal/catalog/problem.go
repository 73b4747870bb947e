package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Answer is a problem's canonical answer: either a number or a text/category.
type Answer struct {
	Numeric bool
	Value   float64
	Text    string

	// tolerance carries the object form's tolerance until Problem
	// decoding moves it into Problem.Tolerance.
	tolerance *float64
}

// NumberAnswer returns a numeric answer.
func NumberAnswer(v float64) Answer {
	return Answer{Numeric: true, Value: v}
}

// TextAnswer returns a categorical/text answer.
func TextAnswer(s string) Answer {
	return Answer{Text: s}
}

// String renders the answer for display.
func (a Answer) String() string {
	if a.Numeric {
		return strconv.FormatFloat(a.Value, 'f', -1, 64)
	}
	return a.Text
}

// MarshalJSON encodes the answer as a bare JSON number or string.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Numeric {
		return json.Marshal(a.Value)
	}
	return json.Marshal(a.Text)
}

// UnmarshalJSON accepts a JSON number, a string, or an object of the form
// {"value": n, "tolerance": t}.
func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Value     *float64 `json:"value"`
			Tolerance *float64 `json:"tolerance"`
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&obj); err != nil {
			return fmt.Errorf("answer object: %w", err)
		}
		if obj.Value == nil {
			return fmt.Errorf("answer object: missing value")
		}
		*a = NumberAnswer(*obj.Value)
		a.tolerance = obj.Tolerance
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("answer must be a number or a string: %w", err)
	}
	*a = NumberAnswer(v)
	return nil
}

// Problem is an immutable practice problem.
type Problem struct {
	ID         string     `json:"id"`
	Topic      Topic      `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Question   string     `json:"question"`
	Answer     Answer     `json:"answer"`

	// Tolerance, when set, is the absolute deviation accepted for a
	// numeric answer. It overrides the default relative tolerance.
	Tolerance *float64 `json:"tolerance,omitempty"`

	Solution string   `json:"solution"`
	Concepts []string `json:"concepts,omitempty"`
	Hints    []string `json:"hints,omitempty"`

	// TimeEstimate is the expected solving time in seconds (0 = unknown).
	TimeEstimate int `json:"timeEstimate,omitempty"`
}

// UnmarshalJSON decodes a problem, taking the tolerance from an object-form
// answer when present.
func (p *Problem) UnmarshalJSON(b []byte) error {
	type plain Problem
	var raw plain
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if t := raw.Answer.tolerance; t != nil {
		if raw.Tolerance != nil && *raw.Tolerance != *t {
			return fmt.Errorf("problem %q: conflicting tolerance on answer and problem", raw.ID)
		}
		raw.Tolerance = t
		raw.Answer.tolerance = nil
	}
	*p = Problem(raw)
	return nil
}
