package chat

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"

	"github.com/havenlabs/haven/pkg/logger"
	"github.com/havenlabs/haven/pkg/memory"
	"github.com/havenlabs/haven/pkg/providers"
)

// FallbackProviderID tags exchanges answered by the offline responder.
const FallbackProviderID = "fallback"

// Generator is the provider orchestrator seam; the engine only needs
// "give me text or fail".
type Generator interface {
	Generate(ctx context.Context, instruction string, history []providers.Message, userMessage string) (providers.Response, error)
}

// Engine runs one conversation turn end to end: extract memories, advance
// the onboarding stage, try the providers, fall back offline, persist,
// log. Construct one per store; anonymous sessions get an engine over an
// in-memory store owned by the caller.
type Engine struct {
	store     memory.Store
	generator Generator
	extractor *Extractor
	anonymous bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// EngineOptions configures construction. Rand is injectable so tests can
// pin the phrasing pools; nil means time-seeded.
type EngineOptions struct {
	Anonymous bool
	Rand      *rand.Rand
}

func NewEngine(store memory.Store, generator Generator, opts EngineOptions) *Engine {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		store:     store,
		generator: generator,
		extractor: NewExtractor(),
		anonymous: opts.Anonymous,
		rng:       rng,
	}
}

// GetResponse always returns text, never an error: provider trouble is
// absorbed by failover and then by the offline responder, and persistence
// trouble degrades to fresh default records. state is written only after
// the response is fully determined, so an aborted turn mutates nothing.
func (e *Engine) GetResponse(ctx context.Context, userMessage, userID string, history []providers.Message) string {
	if strings.TrimSpace(userMessage) == "" {
		return "I'm here whenever you're ready."
	}

	state, memories, prefs := e.loadUserRecords(ctx, userID)

	candidates := e.extractor.Extract(userMessage, state.LastQuestionAsked)
	for _, c := range candidates {
		if _, err := e.store.UpsertMemory(ctx, userID, c); err != nil {
			logger.ErrorCF("chat", "Failed to store memory", map[string]interface{}{
				"user_id": userID,
				"key":     c.Key,
				"error":   err.Error(),
			})
		}
	}
	if len(candidates) > 0 {
		if refreshed, err := e.store.ListMemories(ctx, userID); err == nil {
			memories = refreshed
		}
	}

	outcome := e.advance(state, userMessage, memories)

	responseText, providerID, nextState := e.respond(ctx, state, outcome, memories, prefs, history, userMessage)

	// Client went away mid-turn: hand the text back but leave no partial
	// state behind.
	if ctx.Err() != nil {
		return responseText
	}

	// One-way latch: nothing downstream may un-complete onboarding.
	if state.OnboardingCompleted {
		nextState.OnboardingCompleted = true
	}
	if err := e.store.PutConversationState(ctx, userID, nextState); err != nil {
		logger.ErrorCF("chat", "Failed to persist conversation state", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}

	e.finalizeTurn(ctx, userID, userMessage, responseText, providerID)

	return responseText
}

// respond tries the provider path and falls back offline on exhaustion.
func (e *Engine) respond(ctx context.Context, state memory.ConversationState, outcome Outcome, memories []memory.Memory, prefs memory.Preferences, history []providers.Message, userMessage string) (string, string, memory.ConversationState) {
	if e.generator != nil {
		instruction := ComposePrompt(memories, prefs, state)
		resp, err := e.generator.Generate(ctx, instruction, history, userMessage)
		if err == nil {
			return resp.Text, resp.ProviderID, outcome.Next
		}
		logger.WarnCF("chat", "All providers exhausted, using offline responder", map[string]interface{}{
			"error": err.Error(),
		})
	}

	text, nextState := e.fallback(userMessage, state, memories)
	return text, FallbackProviderID, nextState
}

func (e *Engine) advance(state memory.ConversationState, message string, memories []memory.Memory) Outcome {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return Advance(state, message, memories, e.rng)
}

func (e *Engine) fallback(message string, state memory.ConversationState, memories []memory.Memory) (string, memory.ConversationState) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return Fallback(message, state, memories, e.rng)
}

// loadUserRecords fetches conversation state, memories, and preferences
// concurrently; the three reads are independent. Any read failure falls
// back to a fresh default record rather than failing the turn.
func (e *Engine) loadUserRecords(ctx context.Context, userID string) (memory.ConversationState, []memory.Memory, memory.Preferences) {
	var (
		wg       sync.WaitGroup
		state    memory.ConversationState
		memories []memory.Memory
		prefs    memory.Preferences
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		st, found, err := e.store.GetConversationState(ctx, userID)
		if err != nil {
			logger.WarnCF("chat", "Failed to load conversation state, starting fresh", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		if err != nil || !found {
			st = memory.NewConversationState()
		}
		state = st
	}()
	go func() {
		defer wg.Done()
		list, err := e.store.ListMemories(ctx, userID)
		if err != nil {
			logger.WarnCF("chat", "Failed to load memories", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			list = nil
		}
		memories = list
	}()
	go func() {
		defer wg.Done()
		p, found, err := e.store.GetPreferences(ctx, userID)
		if err != nil || !found {
			p = memory.DefaultPreferences()
		}
		prefs = p
	}()
	wg.Wait()

	return state, memories, prefs
}

// finalizeTurn classifies the exchange and hands it to the persistence
// collaborator. Anonymous sessions are never logged.
func (e *Engine) finalizeTurn(ctx context.Context, userID, userMessage, responseText, providerID string) {
	if e.anonymous {
		return
	}

	turnID, err := gonanoid.New()
	if err != nil {
		turnID = ""
	}

	ex := memory.Exchange{
		ID:           ulid.Make().String(),
		TurnID:       turnID,
		UserMessage:  userMessage,
		ResponseText: responseText,
		Sentiment:    ClassifySentiment(userMessage),
		Topics:       ClassifyTopics(userMessage),
		ProviderID:   providerID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.store.LogExchange(ctx, userID, ex); err != nil {
		logger.ErrorCF("chat", "Failed to log exchange", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// ListMemories is the management surface used by UI collaborators.
func (e *Engine) ListMemories(ctx context.Context, userID string) ([]memory.Memory, error) {
	return e.store.ListMemories(ctx, userID)
}

// DeleteMemory removes one stored fact; returns false when it didn't exist.
func (e *Engine) DeleteMemory(ctx context.Context, userID, memoryID string) (bool, error) {
	return e.store.DeleteMemory(ctx, userID, memoryID)
}
