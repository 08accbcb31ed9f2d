package channels

import (
	"context"
	"testing"

	"github.com/havenlabs/haven/pkg/bus"
)

func TestBaseChannel_IsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		senderID  string
		want      bool
	}{
		{"empty list allows everyone", nil, "12345", true},
		{"exact id match", []string{"12345"}, "12345", true},
		{"id not in list", []string{"12345"}, "99999", false},
		{"compound id part", []string{"12345"}, "12345|sam", true},
		{"compound username part", []string{"sam"}, "12345|sam", true},
		{"at-prefixed entry", []string{"@sam"}, "12345|sam", true},
		{"blank entries skipped", []string{" ", "12345"}, "12345", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBaseChannel("discord", bus.NewMessageBus(), tt.allowList)
			if got := c.IsAllowed(tt.senderID); got != tt.want {
				t.Fatalf("IsAllowed(%q) = %v, want %v", tt.senderID, got, tt.want)
			}
		})
	}
}

func TestBaseChannel_HandleMessagePublishes(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()
	c := NewBaseChannel("discord", mb, nil)

	c.HandleMessage("user1", "chat1", "rough day", map[string]string{"is_dm": "true"})

	msg, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatalf("expected an inbound message")
	}
	if msg.SenderID != "user1" || msg.ChatID != "chat1" || msg.Content != "rough day" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.SessionKey != "discord:chat1" {
		t.Fatalf("session key = %q", msg.SessionKey)
	}
}

func TestBaseChannel_HandleMessageRejectsDisallowed(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()
	c := NewBaseChannel("discord", mb, []string{"someone-else"})

	c.HandleMessage("user1", "chat1", "hi", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatalf("disallowed sender reached the bus")
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short reply", 1500); len(got) != 1 || got[0] != "short reply" {
		t.Fatalf("short message should pass through, got %v", got)
	}

	long := ""
	for i := 0; i < 200; i++ {
		long += "sentence about how the week has been going\n"
	}
	chunks := splitMessage(long, 1500)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 1500 {
			t.Fatalf("chunk %d exceeds limit: %d", i, len(chunk))
		}
		if chunk == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}
