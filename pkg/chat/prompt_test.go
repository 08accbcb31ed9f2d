package chat

import (
	"strings"
	"testing"

	"github.com/havenlabs/haven/pkg/memory"
)

func TestComposePrompt_Deterministic(t *testing.T) {
	memories := []memory.Memory{
		{Type: memory.MemoryFact, Key: "name", Value: "Sam", Importance: 5},
		{Type: memory.MemoryConcern, Key: "concern_1", Value: "insomnia", Importance: 5},
	}
	prefs := memory.DefaultPreferences()
	state := memory.NewConversationState()

	first := ComposePrompt(memories, prefs, state)
	second := ComposePrompt(memories, prefs, state)
	if first != second {
		t.Fatalf("same inputs produced different prompts")
	}
}

func TestComposePrompt_IncludesMemories(t *testing.T) {
	memories := []memory.Memory{
		{Type: memory.MemoryFact, Key: "name", Value: "Sam", Importance: 5},
		{Type: memory.MemoryFact, Key: "occupation", Value: "teacher", Importance: 4},
		{Type: memory.MemoryConcern, Key: "concern_1", Value: "insomnia", Importance: 5},
		{Type: memory.MemoryGoal, Key: "goal_1", Value: "get back into running", Importance: 4},
	}

	prompt := ComposePrompt(memories, memory.DefaultPreferences(), memory.NewConversationState())

	for _, want := range []string{"Sam", "teacher", "insomnia", "get back into running"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestComposePrompt_CapsConcernsAtThree(t *testing.T) {
	memories := []memory.Memory{
		{Type: memory.MemoryConcern, Key: "concern_1", Value: "first worry", Importance: 5},
		{Type: memory.MemoryConcern, Key: "concern_2", Value: "second worry", Importance: 5},
		{Type: memory.MemoryConcern, Key: "concern_3", Value: "third worry", Importance: 5},
		{Type: memory.MemoryConcern, Key: "concern_4", Value: "fourth worry", Importance: 5},
	}

	prompt := ComposePrompt(memories, memory.DefaultPreferences(), memory.NewConversationState())

	if strings.Contains(prompt, "fourth worry") {
		t.Fatalf("prompt should surface at most three concerns")
	}
	if !strings.Contains(prompt, "third worry") {
		t.Fatalf("prompt dropped a concern under the cap")
	}
}

func TestComposePrompt_PreferenceClauses(t *testing.T) {
	prefs := memory.DefaultPreferences()
	prefs.Personality = memory.PersonalityCalm
	prefs.ResponseLength = memory.LengthBrief

	prompt := ComposePrompt(nil, prefs, memory.NewConversationState())

	if !strings.Contains(prompt, "steady, grounded") {
		t.Errorf("missing calm personality clause")
	}
	if !strings.Contains(prompt, "one to three sentences") {
		t.Errorf("missing brief length clause")
	}
}

func TestComposePrompt_UnknownPreferenceFallsBack(t *testing.T) {
	prefs := memory.DefaultPreferences()
	prefs.Personality = "weird_value"

	prompt := ComposePrompt(nil, prefs, memory.NewConversationState())

	if !strings.Contains(prompt, personalityClauses[memory.PersonalityBalanced]) {
		t.Fatalf("unknown personality should fall back to balanced")
	}
}

func TestComposePrompt_SpecializedSupportBlocks(t *testing.T) {
	prefs := memory.DefaultPreferences()
	prompt := ComposePrompt(nil, prefs, memory.NewConversationState())
	if strings.Contains(prompt, "veteran") {
		t.Fatalf("veteran block present without the flag")
	}

	prefs.Veteran = true
	prefs.ReligiousSpiritual = true
	prompt = ComposePrompt(nil, prefs, memory.NewConversationState())
	if !strings.Contains(prompt, "veteran") {
		t.Errorf("missing veteran block")
	}
	if !strings.Contains(prompt, "faith") {
		t.Errorf("missing faith block")
	}
}

func TestComposePrompt_StageContext(t *testing.T) {
	state := memory.NewConversationState()
	prompt := ComposePrompt(nil, memory.DefaultPreferences(), state)
	if !strings.Contains(prompt, "very first exchange") {
		t.Errorf("greeting stage context missing")
	}

	state.OnboardingCompleted = true
	state.CurrentStage = memory.StageOngoing
	prompt = ComposePrompt(nil, memory.DefaultPreferences(), state)
	if !strings.Contains(prompt, "You know this person") {
		t.Errorf("ongoing stage context missing")
	}
}
