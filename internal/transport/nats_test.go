package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
)

type fakeBus struct {
	handlers map[string]func(*events.Message)
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]func(*events.Message))}
}

func (b *fakeBus) Subscribe(subject string, handler func(msg *events.Message)) error {
	b.handlers[subject] = handler
	return nil
}

func (b *fakeBus) QueueSubscribe(subject, _ string, handler func(msg *events.Message)) error {
	b.handlers[subject] = handler
	return nil
}

func (b *fakeBus) Close() error { return nil }

// deliver pushes one inbound event through the wildcard subscription the way
// the NATS client would: sequentially, in arrival order.
func (b *fakeBus) deliver(t *testing.T, ev Event) {
	t.Helper()
	handler, ok := b.handlers[events.ChatInboundAll]
	if !ok {
		t.Fatal("no inbound subscription registered")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	handler(&events.Message{Subject: events.ChatInboundText, Data: data})
}

// slowFirstDispatcher stalls on the first event of each pair so an
// implementation that races events to the dispatcher would invert them.
type slowFirstDispatcher struct {
	stall time.Duration

	mu   sync.Mutex
	seen []string
}

func (d *slowFirstDispatcher) Dispatch(_ context.Context, ev Event) error {
	if ev.Text == "first" || ev.Action == "first" {
		time.Sleep(d.stall)
	}
	d.mu.Lock()
	label := ev.Text
	if label == "" {
		label = ev.Action
	}
	d.seen = append(d.seen, fmt.Sprintf("%d:%s", ev.Identity, label))
	d.mu.Unlock()
	return nil
}

func (d *slowFirstDispatcher) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		if len(d.seen) >= n {
			out := append([]string(nil), d.seen...)
			d.mu.Unlock()
			return out
		}
		d.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d dispatches", n)
	return nil
}

func TestInboundEventsKeepArrivalOrderPerIdentity(t *testing.T) {
	bus := newFakeBus()
	d := &slowFirstDispatcher{stall: time.Millisecond}
	if err := SubscribeInbound(bus, d); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	const trials = 100
	for i := 0; i < trials; i++ {
		// Mixed kinds: the text arrives before the button action and must
		// reach the dispatcher first.
		bus.deliver(t, Event{Identity: 7, Kind: KindText, Text: "first"})
		bus.deliver(t, Event{Identity: 7, Kind: KindAction, Action: "second"})
		seen := d.waitFor(t, 2*(i+1))

		if seen[2*i] != "7:first" || seen[2*i+1] != "7:second" {
			t.Fatalf("trial %d: events processed out of arrival order: %v", i, seen[2*i:2*i+2])
		}
	}
}

func TestSlowIdentityDoesNotBlockOthers(t *testing.T) {
	bus := newFakeBus()
	d := &slowFirstDispatcher{stall: 100 * time.Millisecond}
	if err := SubscribeInbound(bus, d); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Identity 1 is stuck in a slow handler; identity 2 must still drain.
	bus.deliver(t, Event{Identity: 1, Kind: KindText, Text: "first"})
	bus.deliver(t, Event{Identity: 2, Kind: KindText, Text: "quick"})

	seen := d.waitFor(t, 2)
	if seen[0] != "2:quick" {
		t.Fatalf("independent identity was held up: %v", seen)
	}
}
