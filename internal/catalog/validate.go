package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// validateProblems performs structural checks the schema can't express.
// Returns a combined error describing all problems found, or nil if valid.
func validateProblems(version string, problems []Problem) error {
	var errs []string

	if !semver.IsValid(version) {
		errs = append(errs, fmt.Sprintf("catalog version %q is not a semantic version (want e.g. v1.2.0)", version))
	}

	idSet := make(map[string]bool, len(problems))
	for _, p := range problems {
		if p.ID == "" {
			errs = append(errs, "problem with empty ID")
			continue
		}
		if idSet[p.ID] {
			errs = append(errs, fmt.Sprintf("duplicate problem ID: %q", p.ID))
		}
		idSet[p.ID] = true
	}

	for _, p := range problems {
		prefix := fmt.Sprintf("problem %q", p.ID)
		if !p.Topic.Valid() {
			errs = append(errs, fmt.Sprintf("%s: unknown topic %q", prefix, p.Topic))
		}
		if p.Difficulty < 0 {
			errs = append(errs, fmt.Sprintf("%s: difficulty must be >= 0, got %d", prefix, p.Difficulty))
		}
		if strings.TrimSpace(p.Question) == "" {
			errs = append(errs, fmt.Sprintf("%s: empty question", prefix))
		}
		if strings.TrimSpace(p.Solution) == "" {
			errs = append(errs, fmt.Sprintf("%s: empty solution", prefix))
		}
		if !p.Answer.Numeric && strings.TrimSpace(p.Answer.Text) == "" {
			errs = append(errs, fmt.Sprintf("%s: empty answer", prefix))
		}
		if p.Tolerance != nil {
			if !p.Answer.Numeric {
				errs = append(errs, fmt.Sprintf("%s: tolerance set on a text answer", prefix))
			} else if *p.Tolerance < 0 {
				errs = append(errs, fmt.Sprintf("%s: tolerance must be >= 0, got %g", prefix, *p.Tolerance))
			}
		}
		if p.TimeEstimate < 0 {
			errs = append(errs, fmt.Sprintf("%s: timeEstimate must be >= 0, got %d", prefix, p.TimeEstimate))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// CompareVersion orders two catalog versions using semantic versioning.
// The result is -1, 0 or +1. Invalid versions sort before valid ones.
func CompareVersion(a, b string) int {
	return semver.Compare(a, b)
}
