package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider scripts one backend: a fixed answer or error, and a call
// count so tests can assert who was tried.
type fakeProvider struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, instruction string, history []Message, userMessage string) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestOrchestrator_FirstSuccessWins(t *testing.T) {
	a := &fakeProvider{name: "a", text: "from a"}
	b := &fakeProvider{name: "b", text: "from b"}
	o := NewOrchestrator([]Provider{a, b}, time.Second, 10)

	resp, err := o.Generate(context.Background(), "inst", nil, "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "from a" || resp.ProviderID != "a" {
		t.Fatalf("resp = %+v, want provider a", resp)
	}
	if b.calls != 0 {
		t.Fatalf("provider b was called %d times after a succeeded", b.calls)
	}
}

func TestOrchestrator_FailoverSkipsToNext(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("upstream returned 500")}
	b := &fakeProvider{name: "b", text: "from b"}
	o := NewOrchestrator([]Provider{a, b}, time.Second, 10)

	resp, err := o.Generate(context.Background(), "inst", nil, "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "from b" || resp.ProviderID != "b" {
		t.Fatalf("resp = %+v, want provider b", resp)
	}
	if a.calls != 1 {
		t.Fatalf("provider a called %d times, want exactly one attempt", a.calls)
	}
}

func TestOrchestrator_EmptyTextIsFailure(t *testing.T) {
	a := &fakeProvider{name: "a", text: "   "}
	b := &fakeProvider{name: "b", text: "from b"}
	o := NewOrchestrator([]Provider{a, b}, time.Second, 10)

	resp, err := o.Generate(context.Background(), "inst", nil, "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.ProviderID != "b" {
		t.Fatalf("blank completion should fail over, got %+v", resp)
	}
}

func TestOrchestrator_AllFail(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	b := &fakeProvider{name: "b", err: errors.New("also down")}
	o := NewOrchestrator([]Provider{a, b}, time.Second, 10)

	_, err := o.Generate(context.Background(), "inst", nil, "hi")
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("each provider gets one attempt, got a=%d b=%d", a.calls, b.calls)
	}
}

func TestOrchestrator_NoProviders(t *testing.T) {
	o := NewOrchestrator(nil, time.Second, 10)

	_, err := o.Generate(context.Background(), "inst", nil, "hi")
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
}

func TestOrchestrator_PerCallTimeout(t *testing.T) {
	slow := &fakeProvider{name: "slow", text: "late", delay: 500 * time.Millisecond}
	fast := &fakeProvider{name: "fast", text: "from fast"}
	o := NewOrchestrator([]Provider{slow, fast}, 20*time.Millisecond, 10)

	resp, err := o.Generate(context.Background(), "inst", nil, "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.ProviderID != "fast" {
		t.Fatalf("timed-out provider should fail over, got %+v", resp)
	}
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	a := &fakeProvider{name: "a", text: "from a"}
	o := NewOrchestrator([]Provider{a}, time.Second, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Generate(ctx, "inst", nil, "hi")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if a.calls != 0 {
		t.Fatalf("provider called on a dead context")
	}
}

func TestCapHistory(t *testing.T) {
	var history []Message
	for i := 0; i < 12; i++ {
		history = append(history, Message{Role: RoleUser, Content: string(rune('a' + i))})
	}

	capped := capHistory(history, 10)
	if len(capped) != 10 {
		t.Fatalf("len = %d, want 10", len(capped))
	}
	if capped[len(capped)-1].Content != history[len(history)-1].Content {
		t.Fatalf("capping must keep the most recent messages")
	}

	short := capHistory(history[:3], 10)
	if len(short) != 3 {
		t.Fatalf("short history should pass through, got %d", len(short))
	}
}
