package memory

import "time"

// MemoryType classifies durable facts about the user.
type MemoryType string

const (
	MemoryFact       MemoryType = "fact"
	MemoryInterest   MemoryType = "interest"
	MemoryConcern    MemoryType = "concern"
	MemoryGoal       MemoryType = "goal"
	MemoryPreference MemoryType = "preference"
)

// Memory is a stored fact about a user. Key is unique per user; repeated
// extraction of the same key overwrites the value and bumps ReferenceCount
// instead of creating a duplicate row.
type Memory struct {
	ID               string
	Type             MemoryType
	Key              string
	Value            string
	Context          string
	Importance       int // 1-5
	CreatedAt        time.Time
	ReferenceCount   int
	LastReferencedAt time.Time
}

// Candidate is an extracted-but-not-yet-stored fact.
type Candidate struct {
	Type       MemoryType
	Key        string
	Value      string
	Context    string
	Importance int
}

// Stage is the onboarding phase a user's conversation is in.
type Stage string

const (
	StageGreeting      Stage = "greeting"
	StageLearningName  Stage = "learning_name"
	StageLearningAbout Stage = "learning_about"
	StageDeepening     Stage = "deepening"
	StageOngoing       Stage = "ongoing"
)

// ConversationState is the per-user onboarding record, created lazily on the
// first turn. OnboardingCompleted is a one-way latch: normal flow never
// resets it to false. ConversationDepth is stage-scoped.
type ConversationState struct {
	OnboardingCompleted bool
	CurrentStage        Stage
	LastQuestionAsked   string
	PendingMemoryKey    string
	ConversationDepth   int
}

// NewConversationState is the record a user starts with.
func NewConversationState() ConversationState {
	return ConversationState{CurrentStage: StageGreeting}
}

// Personality values for Preferences.
const (
	PersonalitySupportive = "supportive"
	PersonalityEnergetic  = "energetic"
	PersonalityCalm       = "calm"
	PersonalityBalanced   = "balanced"
)

// Response length values for Preferences.
const (
	LengthBrief    = "brief"
	LengthModerate = "moderate"
	LengthDetailed = "detailed"
)

// Conversation style values for Preferences.
const (
	StyleCasual       = "casual"
	StyleProfessional = "professional"
	StyleFriendly     = "friendly"
)

// Name usage frequency values for Preferences.
const (
	NameUsageRarely    = "rarely"
	NameUsageSometimes = "sometimes"
	NameUsageOften     = "often"
)

// Preferences is the read-only user configuration consumed by the prompt
// composer.
type Preferences struct {
	Personality        string
	ResponseLength     string
	ConversationStyle  string
	NameUsageFrequency string
	ReligiousSpiritual bool
	Veteran            bool
	LGBTQ              bool
}

// DefaultPreferences is used whenever a user has no stored record.
func DefaultPreferences() Preferences {
	return Preferences{
		Personality:        PersonalityBalanced,
		ResponseLength:     LengthModerate,
		ConversationStyle:  StyleFriendly,
		NameUsageFrequency: NameUsageSometimes,
	}
}

// Exchange is one logged user/companion turn.
type Exchange struct {
	ID           string
	TurnID       string
	UserMessage  string
	ResponseText string
	Sentiment    string
	Topics       []string
	ProviderID   string
	CreatedAt    time.Time
}
