package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

// RenderRequest is the wire form of an outbound render call.
type RenderRequest struct {
	Identity int64    `json:"identity"`
	Text     string   `json:"text,omitempty"`
	PhotoRef string   `json:"photo_ref,omitempty"`
	Caption  string   `json:"caption,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

// NATSRenderer publishes render requests for the chat transport to execute.
type NATSRenderer struct {
	bus events.Publisher
}

func NewNATSRenderer(bus events.Publisher) *NATSRenderer {
	return &NATSRenderer{bus: bus}
}

func (r *NATSRenderer) ShowText(ctx context.Context, identity int64, text string, options []Option) error {
	return r.bus.Publish(ctx, events.ChatOutbound, RenderRequest{
		Identity: identity,
		Text:     text,
		Options:  options,
	})
}

func (r *NATSRenderer) ShowPhoto(ctx context.Context, identity int64, photoRef, caption string, options []Option) error {
	return r.bus.Publish(ctx, events.ChatOutbound, RenderRequest{
		Identity: identity,
		PhotoRef: photoRef,
		Caption:  caption,
		Options:  options,
	})
}

// Dispatcher is what inbound events are fed into (the session coordinator).
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// inboundQueue replays events per identity in the order they were enqueued.
// One drain goroutine exists per identity only while its queue is non-empty,
// so one identity's events never overlap or invert while distinct identities
// drain concurrently.
type inboundQueue struct {
	d Dispatcher

	mu      sync.Mutex
	pending map[int64][]Event
}

func (q *inboundQueue) enqueue(ev Event) {
	q.mu.Lock()
	queue, draining := q.pending[ev.Identity]
	q.pending[ev.Identity] = append(queue, ev)
	q.mu.Unlock()

	if !draining {
		go q.drain(ev.Identity)
	}
}

func (q *inboundQueue) drain(identity int64) {
	for {
		q.mu.Lock()
		queue := q.pending[identity]
		if len(queue) == 0 {
			delete(q.pending, identity)
			q.mu.Unlock()
			return
		}
		ev := queue[0]
		q.pending[identity] = queue[1:]
		q.mu.Unlock()

		if err := q.d.Dispatch(context.Background(), ev); err != nil {
			logger.Error("Inbound event handling failed", "error", err, "identity", ev.Identity)
		}
	}
}

// SubscribeInbound wires the chat.inbound.* subjects to the dispatcher. A
// single wildcard subscription preserves NATS delivery order across the event
// kinds, and the per-identity queue carries that order through to the
// dispatcher.
func SubscribeInbound(bus events.Subscriber, d Dispatcher) error {
	q := &inboundQueue{d: d, pending: make(map[int64][]Event)}

	return bus.Subscribe(events.ChatInboundAll, func(msg *events.Message) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("Failed to decode inbound chat event", "error", err, "subject", msg.Subject)
			return
		}
		q.enqueue(ev)
	})
}
