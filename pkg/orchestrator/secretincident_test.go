package orchestrator

import (
	"testing"

	"github.com/cuemby/taskforge/pkg/scanner"
)

func TestIncidentFromMatches_NilWhenNoMatches(t *testing.T) {
	if got := incidentFromMatches("t1", nil); got != nil {
		t.Fatalf("expected nil incident, got %+v", got)
	}
}

func TestIncidentFromMatches_DedupesAndSortsPatterns(t *testing.T) {
	matches := []scanner.Match{
		{PatternName: "BEARER_TOKEN"},
		{PatternName: "OPENAI_KEY"},
		{PatternName: "BEARER_TOKEN"},
	}
	got := incidentFromMatches("t1", matches)
	if got == nil {
		t.Fatal("expected non-nil incident")
	}
	if got.MatchCount != 3 {
		t.Errorf("match count = %d, want 3", got.MatchCount)
	}
	want := []string{"BEARER_TOKEN", "OPENAI_KEY"}
	if len(got.Patterns) != len(want) {
		t.Fatalf("patterns = %v, want %v", got.Patterns, want)
	}
	for i, p := range want {
		if got.Patterns[i] != p {
			t.Errorf("patterns[%d] = %s, want %s", i, got.Patterns[i], p)
		}
	}
}

func TestIncidentHash_DeterministicAndTaskScoped(t *testing.T) {
	h1 := incidentHash("t1", []string{"BEARER_TOKEN", "OPENAI_KEY"})
	h2 := incidentHash("t1", []string{"BEARER_TOKEN", "OPENAI_KEY"})
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 16 {
		t.Errorf("hash length = %d, want 16", len(h1))
	}

	h3 := incidentHash("t2", []string{"BEARER_TOKEN", "OPENAI_KEY"})
	if h1 == h3 {
		t.Errorf("hash should differ across task ids")
	}
}
