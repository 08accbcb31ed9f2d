package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore backs anonymous users. It lives for the process lifetime and
// is owned by whoever constructed it; nothing in this package holds a
// process-wide instance.
type InMemoryStore struct {
	mu        sync.RWMutex
	memories  map[string][]*Memory
	states    map[string]ConversationState
	prefs     map[string]Preferences
	exchanges map[string][]Exchange
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		memories:  make(map[string][]*Memory),
		states:    make(map[string]ConversationState),
		prefs:     make(map[string]Preferences),
		exchanges: make(map[string][]Exchange),
	}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) ListMemories(ctx context.Context, userID string) ([]Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.memories[userID]
	out := make([]Memory, 0, len(records))
	for _, m := range records {
		out = append(out, *m)
	}
	sortMemories(out)
	return out, nil
}

func (s *InMemoryStore) UpsertMemory(ctx context.Context, userID string, c Candidate) (Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, m := range s.memories[userID] {
		if m.Key == c.Key {
			m.Value = c.Value
			m.Context = c.Context
			m.Importance = c.Importance
			m.ReferenceCount++
			m.LastReferencedAt = now
			return *m, nil
		}
	}

	record := &Memory{
		ID:               uuid.NewString(),
		Type:             c.Type,
		Key:              c.Key,
		Value:            c.Value,
		Context:          c.Context,
		Importance:       c.Importance,
		CreatedAt:        now,
		ReferenceCount:   0,
		LastReferencedAt: now,
	}
	s.memories[userID] = append(s.memories[userID], record)
	return *record, nil
}

func (s *InMemoryStore) DeleteMemory(ctx context.Context, userID, memoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.memories[userID]
	for i, m := range records {
		if m.ID == memoryID {
			s.memories[userID] = append(records[:i], records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) GetConversationState(ctx context.Context, userID string) (ConversationState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	return st, ok, nil
}

func (s *InMemoryStore) PutConversationState(ctx context.Context, userID string, st ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[userID] = st
	return nil
}

func (s *InMemoryStore) GetPreferences(ctx context.Context, userID string) (Preferences, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	return p, ok, nil
}

func (s *InMemoryStore) PutPreferences(ctx context.Context, userID string, p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[userID] = p
	return nil
}

func (s *InMemoryStore) LogExchange(ctx context.Context, userID string, ex Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	s.exchanges[userID] = append(s.exchanges[userID], ex)
	return nil
}

func (s *InMemoryStore) ListExchanges(ctx context.Context, userID string, limit int) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.exchanges[userID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Exchange, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}

// sortMemories orders by importance desc, then lastReferencedAt desc. Both
// backings use it so retrieval order never depends on the backing.
func sortMemories(list []Memory) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Importance != list[j].Importance {
			return list[i].Importance > list[j].Importance
		}
		return list[i].LastReferencedAt.After(list[j].LastReferencedAt)
	})
}
