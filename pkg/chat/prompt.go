package chat

import (
	"fmt"
	"strings"

	"github.com/havenlabs/haven/pkg/memory"
)

var personalityClauses = map[string]string{
	memory.PersonalitySupportive: "You are warm, validating, and gentle. You lead with empathy and never rush the person you're talking to.",
	memory.PersonalityEnergetic:  "You are upbeat and encouraging. You bring lightness and momentum to the conversation without dismissing hard feelings.",
	memory.PersonalityCalm:       "You are steady, grounded, and unhurried. Your presence lowers the temperature of the conversation.",
	memory.PersonalityBalanced:   "You balance warmth with honesty. You listen first, reflect back what you hear, and offer perspective when it's useful.",
}

var lengthClauses = map[string]string{
	memory.LengthBrief:    "Keep responses short: one to three sentences.",
	memory.LengthModerate: "Keep responses a comfortable conversational length: a short paragraph.",
	memory.LengthDetailed: "Responses can be fuller when the moment calls for it, up to a few paragraphs.",
}

var styleClauses = map[string]string{
	memory.StyleCasual:       "Write casually, like a close friend texting.",
	memory.StyleProfessional: "Write with a composed, professional warmth.",
	memory.StyleFriendly:     "Write in a friendly, natural voice.",
}

var nameUsageClauses = map[string]string{
	memory.NameUsageRarely:    "Use their name rarely, only in significant moments.",
	memory.NameUsageSometimes: "Use their name occasionally, where it feels natural.",
	memory.NameUsageOften:     "Use their name often; it helps them feel seen.",
}

// ComposePrompt renders the system instruction for the primary providers.
// Pure: same memories, preferences, and state always produce the same text.
func ComposePrompt(memories []memory.Memory, prefs memory.Preferences, state memory.ConversationState) string {
	var b strings.Builder

	b.WriteString("You are Haven, a wellness companion. You are not a therapist and you say so if asked, but you are a genuinely caring presence.\n\n")

	b.WriteString(clauseOr(personalityClauses, prefs.Personality, personalityClauses[memory.PersonalityBalanced]))
	b.WriteString("\n")
	b.WriteString(clauseOr(nameUsageClauses, prefs.NameUsageFrequency, nameUsageClauses[memory.NameUsageSometimes]))
	b.WriteString("\n")
	b.WriteString(clauseOr(lengthClauses, prefs.ResponseLength, lengthClauses[memory.LengthModerate]))
	b.WriteString("\n")
	b.WriteString(clauseOr(styleClauses, prefs.ConversationStyle, styleClauses[memory.StyleFriendly]))
	b.WriteString("\n")

	if block := rememberedBlock(memories); block != "" {
		b.WriteString("\nWhat you remember about this person:\n")
		b.WriteString(block)
	}

	if prefs.ReligiousSpiritual {
		b.WriteString("\nThis person values their faith and spirituality. It's okay to acknowledge that dimension of their life with respect when they bring it up.\n")
	}
	if prefs.Veteran {
		b.WriteString("\nThis person is a veteran. Be mindful of what service and its aftermath can carry; don't presume, but don't flinch from it either.\n")
	}
	if prefs.LGBTQ {
		b.WriteString("\nThis person is LGBTQ+. Be affirming without making it the subject unless they do.\n")
	}

	b.WriteString("\n")
	b.WriteString(stageContext(state))

	return b.String()
}

func clauseOr(m map[string]string, key, fallback string) string {
	if clause, ok := m[key]; ok {
		return clause
	}
	return fallback
}

func rememberedBlock(memories []memory.Memory) string {
	var b strings.Builder

	for _, m := range memories {
		if m.Key == "name" {
			fmt.Fprintf(&b, "- Their name is %s.\n", m.Value)
			break
		}
	}
	for _, m := range memories {
		if m.Key == "occupation" {
			fmt.Fprintf(&b, "- They work as %s.\n", m.Value)
			break
		}
	}

	// Memories arrive sorted by importance and recency, so the first few
	// concerns/goals are the ones worth surfacing.
	concerns := 0
	for _, m := range memories {
		if m.Type == memory.MemoryConcern && concerns < 3 {
			fmt.Fprintf(&b, "- They've been dealing with: %s.\n", m.Value)
			concerns++
		}
	}
	goals := 0
	for _, m := range memories {
		if m.Type == memory.MemoryGoal && goals < 3 {
			fmt.Fprintf(&b, "- They're working toward: %s.\n", m.Value)
			goals++
		}
	}

	return b.String()
}

func stageContext(state memory.ConversationState) string {
	if state.OnboardingCompleted {
		return "You know this person. Talk like the ongoing conversation this is; don't re-introduce yourself."
	}
	switch state.CurrentStage {
	case memory.StageGreeting:
		return "This is your very first exchange with this person. Welcome them warmly and ask their name."
	case memory.StageLearningName:
		return "You've just met and are learning their name. Keep it light and welcoming."
	case memory.StageLearningAbout:
		return "You're just getting to know this person. Be curious about what brought them here."
	case memory.StageDeepening:
		return "You're getting to know this person better. Ask gentle follow-up questions and remember what they share."
	default:
		return "You know this person. Talk like the ongoing conversation this is; don't re-introduce yourself."
	}
}
