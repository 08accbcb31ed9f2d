package chat

import (
	"strings"
	"testing"

	"github.com/havenlabs/haven/pkg/memory"
)

func findCandidate(list []memory.Candidate, memType memory.MemoryType) (memory.Candidate, bool) {
	for _, c := range list {
		if c.Type == memType {
			return c, true
		}
	}
	return memory.Candidate{}, false
}

func TestExtract_OccupationAndHobbyFromOneMessage(t *testing.T) {
	ex := NewExtractor()

	candidates := ex.Extract("I work as a teacher and I love hiking", "")

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(candidates), candidates)
	}

	occ, ok := findCandidate(candidates, memory.MemoryFact)
	if !ok || occ.Key != "occupation" {
		t.Fatalf("expected an occupation candidate, got %+v", candidates)
	}
	if !strings.Contains(occ.Value, "teacher") {
		t.Fatalf("occupation = %q, want it to mention teacher", occ.Value)
	}
	if occ.Importance != 4 {
		t.Fatalf("occupation importance = %d, want 4", occ.Importance)
	}

	hobby, ok := findCandidate(candidates, memory.MemoryInterest)
	if !ok {
		t.Fatalf("expected a hobby candidate, got %+v", candidates)
	}
	if !strings.HasPrefix(hobby.Key, "hobby_") {
		t.Fatalf("hobby key = %q, want hobby_<ts>", hobby.Key)
	}
	if !strings.Contains(hobby.Value, "hiking") {
		t.Fatalf("hobby = %q, want it to mention hiking", hobby.Value)
	}
	if hobby.Importance != 3 {
		t.Fatalf("hobby importance = %d, want 3", hobby.Importance)
	}
}

func TestExtract_NameAfterNameQuestion(t *testing.T) {
	ex := NewExtractor()

	for _, message := range []string{"Sam", "I'm Sam", "my name is Sam", "it's Sam"} {
		candidates := ex.Extract(message, "What's your name?")
		name, ok := findCandidate(candidates, memory.MemoryFact)
		if !ok || name.Key != "name" {
			t.Fatalf("message %q: expected a name candidate, got %+v", message, candidates)
		}
		if name.Value != "Sam" {
			t.Fatalf("message %q: name = %q, want Sam", message, name.Value)
		}
		if name.Importance != 5 {
			t.Fatalf("name importance = %d, want 5", name.Importance)
		}
	}
}

func TestExtract_NameStatementWithoutQuestion(t *testing.T) {
	ex := NewExtractor()

	candidates := ex.Extract("by the way, my name is Priya", "")

	name, ok := findCandidate(candidates, memory.MemoryFact)
	if !ok || name.Key != "name" || name.Value != "Priya" {
		t.Fatalf("expected name Priya, got %+v", candidates)
	}
}

func TestExtract_NoNameWithoutCue(t *testing.T) {
	ex := NewExtractor()

	// Without a name question or explicit statement, a short message is
	// not a name.
	candidates := ex.Extract("Sam", "How have things been for you lately?")
	if _, ok := findCandidate(candidates, memory.MemoryFact); ok {
		t.Fatalf("expected no name candidate, got %+v", candidates)
	}
}

func TestExtract_ConcernGoalPreference(t *testing.T) {
	ex := NewExtractor()

	candidates := ex.Extract(
		"I've been struggling with insomnia. I want to get back into running. Music helps me relax",
		"")

	concern, ok := findCandidate(candidates, memory.MemoryConcern)
	if !ok || !strings.Contains(concern.Value, "insomnia") {
		t.Fatalf("expected an insomnia concern, got %+v", candidates)
	}
	if concern.Importance != 5 {
		t.Fatalf("concern importance = %d, want 5", concern.Importance)
	}
	if !strings.HasPrefix(concern.Key, "concern_") {
		t.Fatalf("concern key = %q, want concern_<ts>", concern.Key)
	}

	goal, ok := findCandidate(candidates, memory.MemoryGoal)
	if !ok || !strings.Contains(goal.Value, "running") {
		t.Fatalf("expected a running goal, got %+v", candidates)
	}
	if goal.Importance != 4 {
		t.Fatalf("goal importance = %d, want 4", goal.Importance)
	}

	pref, ok := findCandidate(candidates, memory.MemoryPreference)
	if !ok || !strings.Contains(pref.Value, "relax") {
		t.Fatalf("expected a relax preference, got %+v", candidates)
	}
}

func TestExtract_FamilyRelationUsesFixedKey(t *testing.T) {
	ex := NewExtractor()

	candidates := ex.Extract("my mom is visiting this weekend", "")

	var family memory.Candidate
	found := false
	for _, c := range candidates {
		if c.Key == "family_mom" {
			family = c
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a family_mom candidate, got %+v", candidates)
	}
	if !strings.Contains(family.Value, "visiting") {
		t.Fatalf("family detail = %q, want visiting detail", family.Value)
	}
}

func TestExtract_OverlongCapturesSilentlyDropped(t *testing.T) {
	ex := NewExtractor()

	long := "I work as a " + strings.Repeat("very ", 12) + "specialized consultant"
	candidates := ex.Extract(long, "")

	for _, c := range candidates {
		if c.Key == "occupation" {
			t.Fatalf("overlong occupation should have been dropped, got %q", c.Value)
		}
	}
}

func TestExtract_DistinctKeysAcrossCalls(t *testing.T) {
	ex := NewExtractor()

	first := ex.Extract("I really enjoy painting", "")
	second := ex.Extract("I really enjoy painting", "")

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one hobby per call, got %d and %d", len(first), len(second))
	}
	if first[0].Key == second[0].Key {
		t.Fatalf("timestamped keys should differ across calls, both %q", first[0].Key)
	}
}

func TestExtract_EmptyMessage(t *testing.T) {
	ex := NewExtractor()

	if got := ex.Extract("   ", "What's your name?"); got != nil {
		t.Fatalf("expected nil for blank message, got %+v", got)
	}
}
