// Package gateway runs the companion's message loop: consume user
// messages from the bus, answer them through the chat engine, and publish
// the replies back toward their channel.
package gateway

import (
	"context"
	"sync/atomic"

	"github.com/havenlabs/haven/pkg/bus"
	"github.com/havenlabs/haven/pkg/config"
	"github.com/havenlabs/haven/pkg/logger"
	"github.com/havenlabs/haven/pkg/memory"
	"github.com/havenlabs/haven/pkg/providers"
)

// Responder is the engine seam: one user turn in, reply text out.
type Responder interface {
	GetResponse(ctx context.Context, userMessage, userID string, history []providers.Message) string
}

// Loop ties the bus to the engine. The sender ID is the per-user record
// key, so two people in the same Discord channel keep separate memories.
type Loop struct {
	cfg       *config.Config
	bus       *bus.MessageBus
	responder Responder
	store     memory.Store
	running   atomic.Bool
}

func NewLoop(cfg *config.Config, messageBus *bus.MessageBus, responder Responder, store memory.Store) *Loop {
	return &Loop{
		cfg:       cfg,
		bus:       messageBus,
		responder: responder,
		store:     store,
	}
}

// Run blocks consuming inbound messages until ctx is done or Stop is
// called. Each turn is handled to completion before the next is taken;
// per-user ordering comes for free.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	logger.InfoC("gateway", "Companion gateway started")

	for l.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
			msg, ok := l.bus.ConsumeInbound(ctx)
			if !ok {
				continue
			}

			reply := l.responder.GetResponse(ctx, msg.Content, msg.SenderID, l.recentHistory(ctx, msg.SenderID))
			if reply == "" {
				continue
			}

			l.bus.PublishOutbound(bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: reply,
			})
		}
	}

	return nil
}

func (l *Loop) Stop() {
	l.running.Store(false)
}

// recentHistory rebuilds the provider transcript from the exchange log,
// oldest first. A read failure just means an emptier prompt.
func (l *Loop) recentHistory(ctx context.Context, userID string) []providers.Message {
	limit := l.cfg.Companion.MaxHistoryMessages
	if limit <= 0 {
		limit = 10
	}

	exchanges, err := l.store.ListExchanges(ctx, userID, limit)
	if err != nil {
		logger.WarnCF("gateway", "Failed to load exchange history", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}

	history := make([]providers.Message, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		history = append(history,
			providers.Message{Role: providers.RoleUser, Content: ex.UserMessage},
			providers.Message{Role: providers.RoleAssistant, Content: ex.ResponseText},
		)
	}
	return history
}
