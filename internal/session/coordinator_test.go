package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
)

type recordingRenderer struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingRenderer) ShowText(_ context.Context, _ int64, text string, _ []transport.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingRenderer) ShowPhoto(_ context.Context, _ int64, _, caption string, _ []transport.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, caption)
	return nil
}

func (r *recordingRenderer) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func textEvent(identity int64, text string) transport.Event {
	return transport.Event{Identity: identity, Kind: transport.KindText, Text: text}
}

func TestDispatchRoutesActiveStep(t *testing.T) {
	store := NewMemoryStore()
	render := &recordingRenderer{}
	c := NewCoordinator(store, render)

	var stepCalled, fallbackCalled bool
	c.HandleStep(domain.StepAwaitingAddress, func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		stepCalled = true
		return nil
	})
	c.HandleFallback(func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		fallbackCalled = true
		return nil
	})

	store.Put(context.Background(), 7, &domain.SessionState{Step: domain.StepAwaitingAddress})

	if err := c.Dispatch(context.Background(), textEvent(7, "Main St 1")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !stepCalled || fallbackCalled {
		t.Fatalf("expected step handler only, step=%v fallback=%v", stepCalled, fallbackCalled)
	}
}

func TestDispatchFallsBackWhenIdle(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, &recordingRenderer{})

	var fallbackCalled bool
	c.HandleStep(domain.StepAwaitingAddress, func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		t.Fatal("step handler must not run while idle")
		return nil
	})
	c.HandleFallback(func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		fallbackCalled = true
		return nil
	})

	if err := c.Dispatch(context.Background(), textEvent(7, "hello")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !fallbackCalled {
		t.Fatal("expected fallback handler")
	}
}

func TestDispatchFallsBackForUnregisteredStep(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, &recordingRenderer{})

	var fallbackCalled bool
	c.HandleFallback(func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		fallbackCalled = true
		return nil
	})

	// A step with no registered text handler behaves like idle.
	store.Put(context.Background(), 7, &domain.SessionState{Step: domain.StepAwaitingConfirm})

	if err := c.Dispatch(context.Background(), textEvent(7, "anything")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !fallbackCalled {
		t.Fatal("expected fallback handler")
	}
}

func TestValidationErrorKeepsStep(t *testing.T) {
	store := NewMemoryStore()
	render := &recordingRenderer{}
	c := NewCoordinator(store, render)

	c.HandleStep(domain.StepAwaitingAddress, func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		return domain.Validation("the address cannot be empty.")
	})

	ctx := context.Background()
	store.Put(ctx, 7, &domain.SessionState{Step: domain.StepAwaitingAddress})

	if err := c.Dispatch(ctx, textEvent(7, "")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if got := render.last(); got != "the address cannot be empty. Please try again." {
		t.Fatalf("unexpected reply %q", got)
	}
	state, _ := store.Get(ctx, 7)
	if state == nil || state.Step != domain.StepAwaitingAddress {
		t.Fatalf("step must be kept for retry, got %+v", state)
	}
}

func TestErrorReplies(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", domain.ErrNotFound, "Not found."},
		{"empty cart", domain.ErrEmptyCart, "Your cart is empty."},
		{"internal", errors.New("connection refused"), "Something went wrong, please try again later."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMemoryStore()
			render := &recordingRenderer{}
			c := NewCoordinator(store, render)
			c.HandleFallback(func(ctx context.Context, ev transport.Event, conv *Conversation) error {
				return tc.err
			})

			if err := c.Dispatch(context.Background(), textEvent(7, "x")); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if got := render.last(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTransitionLatestWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	conv := &Conversation{Identity: 7, store: store}

	if err := conv.Transition(ctx, &domain.SessionState{Step: domain.StepAwaitingEmail}); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if err := conv.Transition(ctx, &domain.SessionState{Step: domain.StepAwaitingAddress}); err != nil {
		t.Fatalf("second transition: %v", err)
	}

	state, _ := store.Get(ctx, 7)
	if state == nil || state.Step != domain.StepAwaitingAddress {
		t.Fatalf("expected latest state, got %+v", state)
	}

	if err := conv.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	state, _ = store.Get(ctx, 7)
	if state != nil {
		t.Fatalf("expected idle after End, got %+v", state)
	}
}

func TestIdentityLocksAreEvicted(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, &recordingRenderer{})
	c.HandleFallback(func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		return nil
	})

	for identity := int64(1); identity <= 50; identity++ {
		if err := c.Dispatch(context.Background(), textEvent(identity, "hello")); err != nil {
			t.Fatalf("dispatch identity %d: %v", identity, err)
		}
	}

	c.mu.Lock()
	remaining := len(c.locks)
	c.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("lock map must not retain idle identities, holds %d", remaining)
	}
}

func TestDispatchSerializesPerIdentity(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, &recordingRenderer{})

	var mu sync.Mutex
	var order []string
	c.HandleFallback(func(ctx context.Context, ev transport.Event, conv *Conversation) error {
		mu.Lock()
		order = append(order, "start:"+ev.Text)
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		order = append(order, "end:"+ev.Text)
		mu.Unlock()
		return nil
	})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		c.Dispatch(context.Background(), textEvent(7, "first"))
		close(done)
	}()
	<-started
	time.Sleep(5 * time.Millisecond) // let "first" take the identity lock
	c.Dispatch(context.Background(), textEvent(7, "second"))
	<-done

	want := []string{"start:first", "end:first", "start:second", "end:second"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("got %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("events interleaved: %v", order)
		}
	}
}
