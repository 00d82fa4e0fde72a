package planner

import (
	"errors"
	"testing"
)

func TestParsePlanResponseDefaults(t *testing.T) {
	ms, total, err := parsePlanResponse(`{"milestones": [{"id": "m1", "title": "Only one"}]}`)
	if err != nil {
		t.Fatalf("parsePlanResponse failed: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("Expected 1 milestone, got %d", len(ms))
	}

	m := ms[0]
	if m.EstimatedMinutes != defaultEstimatedMinutes {
		t.Errorf("Expected default estimate %d, got %d", defaultEstimatedMinutes, m.EstimatedMinutes)
	}
	if m.MaxRetries != defaultMaxRetries {
		t.Errorf("Expected default max retries %d, got %d", defaultMaxRetries, m.MaxRetries)
	}
	if m.Dependencies == nil {
		t.Error("Dependencies should default to an empty slice, not nil")
	}
	if total != defaultEstimatedMinutes {
		t.Errorf("Total should default to the milestone sum, got %d", total)
	}
}

func TestParsePlanResponseMissingFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing id", `{"milestones": [{"title": "No id"}]}`},
		{"missing title", `{"milestones": [{"id": "m1"}]}`},
		{"no milestones", `{"milestones": []}`},
		{"malformed json", `{"milestones": [}`},
		{"no json at all", `plain prose answer`},
	}

	for _, tc := range cases {
		_, _, err := parsePlanResponse(tc.body)
		var perr *PlanParseError
		if !errors.As(err, &perr) {
			t.Errorf("%s: expected PlanParseError, got %v", tc.name, err)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, ok := extractJSONObject(`prefix {"a": {"b": 1}} suffix`)
	if !ok || got != `{"a": {"b": 1}}` {
		t.Errorf("Expected nested object, got %q ok=%v", got, ok)
	}

	// Braces inside string literals must not unbalance the scan.
	got, ok = extractJSONObject(`text {"msg": "close } brace", "n": 1} more`)
	if !ok || got != `{"msg": "close } brace", "n": 1}` {
		t.Errorf("String-literal brace mishandled: %q ok=%v", got, ok)
	}

	// Escaped quotes inside strings.
	got, ok = extractJSONObject(`{"msg": "she said \"}\"", "n": 2}`)
	if !ok || got != `{"msg": "she said \"}\"", "n": 2}` {
		t.Errorf("Escaped quote mishandled: %q ok=%v", got, ok)
	}

	if _, ok := extractJSONObject("no object here"); ok {
		t.Error("Expected no object in plain text")
	}
	if _, ok := extractJSONObject(`{"unterminated": 1`); ok {
		t.Error("Expected no object for unbalanced braces")
	}
}
