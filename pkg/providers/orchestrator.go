package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/havenlabs/haven/pkg/logger"
)

// ErrAllProvidersFailed signals that every backend either errored or
// returned an empty completion; the caller should switch to the offline
// fallback.
var ErrAllProvidersFailed = errors.New("all providers failed or returned empty text")

// Orchestrator tries an ordered provider list, first success wins. Each
// provider gets exactly one attempt per turn, under its own deadline so a
// hung backend can't block the fallback path.
type Orchestrator struct {
	providers  []Provider
	timeout    time.Duration
	maxHistory int
}

func NewOrchestrator(providerList []Provider, timeout time.Duration, maxHistory int) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &Orchestrator{
		providers:  providerList,
		timeout:    timeout,
		maxHistory: maxHistory,
	}
}

// Generate calls providers sequentially, never concurrently: a later
// provider should not be called (or billed) once an earlier one succeeds.
func (o *Orchestrator) Generate(ctx context.Context, instruction string, history []Message, userMessage string) (Response, error) {
	history = capHistory(history, o.maxHistory)

	for _, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		text, err := o.generateOne(ctx, p, instruction, history, userMessage)
		if err != nil {
			logger.WarnCF("providers", "Provider failed, trying next", map[string]interface{}{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.WarnCF("providers", "Provider returned empty text, trying next", map[string]interface{}{
				"provider": p.Name(),
			})
			continue
		}
		return Response{Text: text, ProviderID: p.Name()}, nil
	}

	return Response{}, ErrAllProvidersFailed
}

func (o *Orchestrator) generateOne(ctx context.Context, p Provider, instruction string, history []Message, userMessage string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return p.Generate(callCtx, instruction, history, userMessage)
}

func capHistory(history []Message, max int) []Message {
	if len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
