package chat

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/havenlabs/haven/pkg/memory"
)

const whatBringsYouHere = "What brings you here?"
const nameQuestion = "What's your name?"

// Outcome is the result of advancing the conversation one turn: the canned
// reply (used verbatim by the fallback path) and the next state (used by
// both paths).
type Outcome struct {
	Reply string
	Next  memory.ConversationState
}

// stageRule pairs a predicate with its handler. Rules are evaluated in
// order; the first match wins, which keeps branch priority an explicit,
// testable artifact.
type stageRule struct {
	match  func(t *turn) bool
	handle func(t *turn) Outcome
}

// turn carries one message through the rule tables.
type turn struct {
	state    memory.ConversationState
	message  string
	trimmed  string
	lower    string
	memories []memory.Memory
	rng      *rand.Rand
}

func (t *turn) userName() string {
	for _, m := range t.memories {
		if m.Key == "name" {
			return m.Value
		}
	}
	return ""
}

func (t *turn) containsAny(keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(t.lower, kw) {
			return true
		}
	}
	return false
}

// Advance computes the reply and next state for one turn. It is pure given
// its inputs plus rng, and is the single implementation behind both the
// provider-backed path and the offline fallback.
func Advance(state memory.ConversationState, message string, memories []memory.Memory, rng *rand.Rand) Outcome {
	t := &turn{
		state:    state,
		message:  message,
		trimmed:  strings.TrimSpace(message),
		lower:    strings.ToLower(strings.TrimSpace(message)),
		memories: memories,
		rng:      rng,
	}

	var rules []stageRule
	switch state.CurrentStage {
	case memory.StageGreeting:
		rules = greetingRules
	case memory.StageLearningName:
		rules = learningNameRules
	case memory.StageLearningAbout:
		rules = learningAboutRules
	case memory.StageDeepening:
		rules = deepeningRules
	case memory.StageOngoing:
		rules = ongoingRules
	default:
		// Unknown stage in a stored record; restart the flow.
		t.state.CurrentStage = memory.StageGreeting
		rules = greetingRules
	}

	for _, rule := range rules {
		if rule.match(t) {
			return rule.handle(t)
		}
	}

	// Every table ends with a catch-all, so this is unreachable; answer
	// gently anyway rather than panic.
	return Outcome{Reply: "I'm here. Tell me more?", Next: t.state}
}

var greetingPhrases = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "yo", "hiya", "howdy"}

func isGreetingPhrase(lower string) bool {
	cleaned := strings.Trim(lower, " .,!?")
	for _, g := range greetingPhrases {
		if cleaned == g || strings.HasPrefix(cleaned, g+" ") || strings.HasPrefix(cleaned, g+",") || strings.HasPrefix(cleaned, g+"!") {
			return true
		}
	}
	return false
}

// looksLikeName: short, single-line, non-empty, and not just a greeting.
func looksLikeName(trimmed string) bool {
	return trimmed != "" &&
		len(trimmed) < 30 &&
		!strings.Contains(trimmed, "\n") &&
		!isGreetingPhrase(strings.ToLower(trimmed))
}

var greetingRules = []stageRule{
	{
		match: func(t *turn) bool { return looksLikeName(t.trimmed) },
		handle: func(t *turn) Outcome {
			name := strings.Trim(t.trimmed, ".,!?")
			next := t.state
			next.CurrentStage = memory.StageLearningAbout
			next.ConversationDepth = 2
			next.LastQuestionAsked = whatBringsYouHere
			next.PendingMemoryKey = ""
			return Outcome{
				Reply: fmt.Sprintf("It's really good to meet you, %s. What brings you here today?", name),
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return true },
		handle: func(t *turn) Outcome {
			next := t.state
			next.CurrentStage = memory.StageLearningName
			next.ConversationDepth = 1
			next.LastQuestionAsked = nameQuestion
			next.PendingMemoryKey = "name"
			return Outcome{
				Reply: "Hi, I'm Haven. I'm really glad you're here. What's your name?",
				Next:  next,
			}
		},
	},
}

var learningNameRules = []stageRule{
	{
		match: func(t *turn) bool {
			name := nameFromReply(t.trimmed)
			return name != "" && len(name) < 30 && !strings.Contains(name, "\n")
		},
		handle: func(t *turn) Outcome {
			name := nameFromReply(t.trimmed)
			next := t.state
			next.CurrentStage = memory.StageLearningAbout
			next.ConversationDepth = 2
			next.LastQuestionAsked = whatBringsYouHere
			next.PendingMemoryKey = ""
			return Outcome{
				Reply: fmt.Sprintf("It's really good to meet you, %s. What brings you here today?", name),
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return true },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			next.LastQuestionAsked = nameQuestion
			return Outcome{
				Reply: "Sorry, I didn't quite catch that. What should I call you?",
				Next:  next,
			}
		},
	},
}

// nameFromReply prefers the explicit name pattern, then falls back to the
// raw trimmed message.
func nameFromReply(trimmed string) string {
	ex := NewExtractor()
	if name := ex.ExtractName(trimmed); name != "" {
		return name
	}
	return trimmed
}

func toDeepening(t *turn, reply string, question string) Outcome {
	next := t.state
	next.CurrentStage = memory.StageDeepening
	next.ConversationDepth++
	next.LastQuestionAsked = question
	return Outcome{Reply: reply, Next: next}
}

var learningAboutRules = []stageRule{
	{
		match: func(t *turn) bool { return t.containsAny("huh", "what", "explain", "why", "how") },
		handle: func(t *turn) Outcome {
			return toDeepening(t,
				"Fair question. I'm here to listen, learn what matters to you, and be someone you can talk things through with. No agenda. So, how have things been for you lately?",
				"How have things been for you lately?")
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("test", "improv", "functionality") },
		handle: func(t *turn) Outcome {
			return toDeepening(t,
				"Go ahead, kick the tires. I don't mind. And whenever you feel like talking about something real, I'm here for that too. What's been on your mind?",
				"What's been on your mind?")
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("work", "job", "career", "boss", "school", "study") },
		handle: func(t *turn) Outcome {
			return toDeepening(t,
				"Work takes up so much of our time and energy. How has it been feeling for you lately?",
				"How has work been feeling for you lately?")
		},
	},
	{
		match: func(t *turn) bool {
			return t.containsAny("friend", "family", "partner", "relationship", "mom", "dad", "wife", "husband", "girlfriend", "boyfriend")
		},
		handle: func(t *turn) Outcome {
			return toDeepening(t,
				"The people in our lives shape so much of how we feel. Tell me more about them, if you'd like. How are those relationships sitting with you right now?",
				"How are those relationships sitting with you right now?")
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("stress", "anxious", "anxiety", "worried", "worry") },
		handle: func(t *turn) Outcome {
			return toDeepening(t,
				"That sounds heavy, and I'm glad you told me. When the stress shows up, where do you feel it most?",
				"When the stress shows up, where do you feel it most?")
		},
	},
	{
		match: func(t *turn) bool { return len(t.trimmed) > 10 },
		handle: func(t *turn) Outcome {
			return toDeepening(t,
				"Thank you for sharing that with me. I want to understand more about what that's like for you. What part of it weighs on you the most?",
				"What part of it weighs on you the most?")
		},
	},
	{
		match: func(t *turn) bool { return true },
		handle: func(t *turn) Outcome {
			// Too short to branch on; stay here and invite more.
			next := t.state
			next.LastQuestionAsked = "What's been on your mind lately?"
			return Outcome{
				Reply: "I'd love to hear more. What's been on your mind lately?",
				Next:  next,
			}
		},
	},
}

var deepeningFollowUps = []string{
	"What does a good day look like for you these days?",
	"When things get hard, what usually helps you through?",
	"Is there something you wish the people around you understood better?",
	"What's one thing you're looking forward to, even a small one?",
}

func completeOnboarding(t *turn, reply string) Outcome {
	next := t.state
	next.CurrentStage = memory.StageOngoing
	next.OnboardingCompleted = true
	next.ConversationDepth = 0
	next.LastQuestionAsked = ""
	return Outcome{Reply: reply, Next: next}
}

var dismissivePhrases = []string{"idk", "i don't know", "dunno", "whatever", "sure", "nothing", "not much", "nope", "no"}

func isDismissive(lower string) bool {
	cleaned := strings.Trim(lower, " .,!?")
	for _, p := range dismissivePhrases {
		if cleaned == p {
			return true
		}
	}
	return false
}

var deepeningRules = []stageRule{
	{
		match: func(t *turn) bool { return t.state.ConversationDepth >= 4 },
		handle: func(t *turn) Outcome {
			return completeOnboarding(t,
				"I feel like I'm starting to get a real sense of you, and I'm glad. From here on, this space is yours. Whatever you want to talk about, whenever, I'm here.")
		},
	},
	{
		match: func(t *turn) bool { return isDismissive(t.lower) && len(t.trimmed) < 12 },
		handle: func(t *turn) Outcome {
			return completeOnboarding(t,
				"That's completely okay. We don't have to dig into anything. I'm here whenever you feel like talking, about anything or nothing at all.")
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("test", "testing", "just checking", "lol", "haha") },
		handle: func(t *turn) Outcome {
			return completeOnboarding(t,
				"Ha, fair enough. Consider me tested. Seriously though, I'm around whenever you want to talk.")
		},
	},
	{
		match: func(t *turn) bool { return true },
		handle: func(t *turn) Outcome {
			question := deepeningFollowUps[t.state.ConversationDepth%len(deepeningFollowUps)]
			next := t.state
			next.ConversationDepth++
			next.LastQuestionAsked = question
			return Outcome{
				Reply: "I hear you. " + question,
				Next:  next,
			}
		},
	},
}

var shortPromptPool = []string{
	"I'm listening. What else is going on?",
	"Tell me more?",
	"How has the rest of your day been?",
	"What's been taking up most of your headspace today?",
}

var longResponsePool = []string{
	"That's a lot to carry, and you laid it out really clearly. Of everything you just said, what feels most pressing right now?",
	"Thank you for trusting me with all of that. I'm not going anywhere. Which part of it would help most to talk through?",
	"I read every word. It sounds like a lot has been building up. If we took just one piece of that together, which would you pick?",
}

var ongoingRules = []stageRule{
	{
		match: func(t *turn) bool { return isGreetingPhrase(t.lower) },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth = 0
			reply := "Hey, it's good to see you again. How are you doing today?"
			if name := t.userName(); name != "" {
				reply = fmt.Sprintf("Hey %s, it's good to see you again. How are you doing today?", name)
			}
			return Outcome{Reply: reply, Next: next}
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("anxious", "anxiety", "panic", "overwhelmed") },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth = 1
			return Outcome{
				Reply: "Anxiety can make everything feel louder than it is. Let's slow it down together.\n\nTry one long breath out, longer than the breath in.\n\nWhat's feeding the anxiety most right now?",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("sad", "down", "depressed", "lonely", "cry") },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth = 1
			return Outcome{
				Reply: "I'm sorry it's heavy right now. You don't have to be okay here.\n\nSadness usually has something underneath it worth listening to.\n\nDo you want to tell me what's been weighing on you?",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("angry", "furious", "mad", "frustrated") },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth = 1
			return Outcome{
				Reply: "That anger sounds earned. It's usually pointing at something that matters.\n\nNo need to soften it for me.\n\nWhat happened?",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("happy", "great", "excited", "amazing", "wonderful") },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth = 1
			return Outcome{
				Reply: "I love hearing that. Good moments deserve as much air time as hard ones.\n\nWhat's got you feeling this way?",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("work", "job", "boss", "coworker", "shift") },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			return Outcome{
				Reply: "Work again, huh. It has a way of following us home. What's going on there?",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("huh", "confused", "explain", "don't understand", "what do you mean") },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			return Outcome{
				Reply: "Let me put it more simply. I'm here to listen and talk things through with you, whatever's on your mind. Where should we pick up?",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return t.containsAny("test", "testing", "functionality", "improv") },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			return Outcome{
				Reply: "Still here, still working. Test away. And if something real comes up, you know where to find me.",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool {
			cleaned := strings.Trim(t.lower, " .,!?")
			return cleaned == "fine" || cleaned == "ok" || cleaned == "okay" || cleaned == "good" || cleaned == "alright"
		},
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			return Outcome{
				Reply: "Glad to hear it. And if \"fine\" is doing some heavy lifting there, I've got time.",
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return len(t.trimmed) < 15 },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			return Outcome{
				Reply: shortPromptPool[t.rng.Intn(len(shortPromptPool))],
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return len(t.trimmed) > 50 },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			return Outcome{
				Reply: longResponsePool[t.rng.Intn(len(longResponsePool))],
				Next:  next,
			}
		},
	},
	{
		match: func(t *turn) bool { return true },
		handle: func(t *turn) Outcome {
			next := t.state
			next.ConversationDepth++
			return Outcome{
				Reply: "I'm sitting with what you said. What does that bring up for you?",
				Next:  next,
			}
		},
	},
}
