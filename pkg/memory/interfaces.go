package memory

import "context"

// Store is the per-user record store behind the dialogue engine. The
// in-process and durable implementations must be behaviorally
// indistinguishable; callers only choose which one to construct.
//
// Concurrent turns for the same user are last-write-wins, not serialized.
type Store interface {
	Close() error

	// ListMemories returns a user's memories ordered by importance desc,
	// then lastReferencedAt desc.
	ListMemories(ctx context.Context, userID string) ([]Memory, error)

	// UpsertMemory inserts the candidate, or when a record with the same
	// key exists, overwrites its value/context/importance and bumps
	// ReferenceCount and LastReferencedAt.
	UpsertMemory(ctx context.Context, userID string, c Candidate) (Memory, error)

	// DeleteMemory removes one record by id. Returns false when no such
	// record exists for the user.
	DeleteMemory(ctx context.Context, userID, memoryID string) (bool, error)

	// GetConversationState returns the user's onboarding record; ok is
	// false when the user has never had a turn.
	GetConversationState(ctx context.Context, userID string) (ConversationState, bool, error)
	PutConversationState(ctx context.Context, userID string, st ConversationState) error

	GetPreferences(ctx context.Context, userID string) (Preferences, bool, error)
	PutPreferences(ctx context.Context, userID string, p Preferences) error

	// LogExchange appends a finished turn to the user's history.
	LogExchange(ctx context.Context, userID string, ex Exchange) error
	ListExchanges(ctx context.Context, userID string, limit int) ([]Exchange, error)
}
