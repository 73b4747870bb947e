// Package answer decides whether a submitted answer matches a problem's
// canonical answer.
package answer

import (
	"math"
	"strconv"
	"strings"

	"github.com/finprep/finprep/internal/catalog"
)

// DefaultRelativeTolerance is the fraction of the correct value accepted as
// deviation when a problem carries no explicit tolerance.
const DefaultRelativeTolerance = 0.02

// stripper removes the formatting characters learners type around numbers.
var stripper = strings.NewReplacer(",", "", "$", "", "%", "")

// Check validates userAnswer against problem p, honoring its tolerance.
func Check(userAnswer string, p catalog.Problem) bool {
	return Validate(userAnswer, p.Answer, p.Tolerance)
}

// Validate compares a learner's input against the canonical answer.
//
// Numeric answers: ",", "$" and "%" are stripped, the rest must parse as a
// float, and the absolute difference must be within tolerance (or within
// 2% of the correct value when tolerance is nil).
//
// Text answers: case-insensitive containment in either direction, so
// "asset" matches "Current Asset" and vice versa.
func Validate(userAnswer string, correct catalog.Answer, tolerance *float64) bool {
	if correct.Numeric {
		return ValidateNumeric(userAnswer, correct.Value, tolerance)
	}
	return ValidateText(userAnswer, correct.Text)
}

// ValidateNumeric reports whether userAnswer is within tolerance of correct.
// Unparseable input is never correct.
func ValidateNumeric(userAnswer string, correct float64, tolerance *float64) bool {
	parsed, ok := ParseNumber(userAnswer)
	if !ok {
		return false
	}
	tol := math.Abs(correct) * DefaultRelativeTolerance
	if tolerance != nil {
		tol = math.Abs(*tolerance)
	}
	return math.Abs(parsed-correct) <= tol
}

// ParseNumber strips currency, percent and thousands separators and parses
// the remainder. NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(stripper.Replace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ValidateText reports whether the answers contain one another, ignoring
// case and surrounding whitespace. An empty answer never matches.
func ValidateText(userAnswer, correct string) bool {
	u := strings.ToLower(strings.TrimSpace(userAnswer))
	c := strings.ToLower(strings.TrimSpace(correct))
	if u == "" || c == "" {
		return false
	}
	return strings.Contains(u, c) || strings.Contains(c, u)
}
