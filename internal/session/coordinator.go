package session

import (
	"context"
	"errors"
	"sync"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

// Conversation is the handler-facing view of one identity's session: the
// loaded state plus transition primitives. Saving a new state or ending the
// conversation is latest-wins.
type Conversation struct {
	Identity int64
	State    *domain.SessionState

	store Store
}

// Transition replaces the conversation state.
func (c *Conversation) Transition(ctx context.Context, state *domain.SessionState) error {
	c.State = state
	return c.store.Put(ctx, c.Identity, state)
}

// End discards the conversation state, returning the identity to idle.
func (c *Conversation) End(ctx context.Context) error {
	c.State = nil
	return c.store.Clear(ctx, c.Identity)
}

// Handler processes one inbound event for a conversation.
type Handler func(ctx context.Context, ev transport.Event, conv *Conversation) error

// Coordinator routes inbound events to the handler for the identity's
// current step. Dispatch never overlaps two events for one identity; arrival
// order across events is the caller's responsibility (the inbound transport
// queue feeds one identity's events strictly sequentially).
type Coordinator struct {
	store    Store
	renderer transport.Renderer

	steps    map[domain.Step]Handler
	action   Handler
	contact  Handler
	photo    Handler
	fallback Handler

	mu    sync.Mutex
	locks map[int64]*identityLock
}

// identityLock is refcounted so the map only holds identities with an event
// in flight, not every identity ever seen.
type identityLock struct {
	sync.Mutex
	refs int
}

func NewCoordinator(store Store, renderer transport.Renderer) *Coordinator {
	return &Coordinator{
		store:    store,
		renderer: renderer,
		steps:    make(map[domain.Step]Handler),
		locks:    make(map[int64]*identityLock),
	}
}

// HandleStep registers the handler for text input while in a step.
func (c *Coordinator) HandleStep(step domain.Step, h Handler) {
	c.steps[step] = h
}

// HandleAction registers the handler for button actions.
func (c *Coordinator) HandleAction(h Handler) { c.action = h }

// HandleContact registers the handler for contact-share events.
func (c *Coordinator) HandleContact(h Handler) { c.contact = h }

// HandlePhoto registers the handler for photo attachments.
func (c *Coordinator) HandlePhoto(h Handler) { c.photo = h }

// HandleFallback registers the default path for text that matches no active
// step. It is a normal menu interaction, not an error.
func (c *Coordinator) HandleFallback(h Handler) { c.fallback = h }

func (c *Coordinator) acquire(identity int64) *identityLock {
	c.mu.Lock()
	lock, ok := c.locks[identity]
	if !ok {
		lock = &identityLock{}
		c.locks[identity] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.Lock()
	return lock
}

func (c *Coordinator) release(identity int64, lock *identityLock) {
	lock.Unlock()

	c.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(c.locks, identity)
	}
	c.mu.Unlock()
}

// Dispatch routes one inbound event. Handler failures terminate only this
// event's handling: validation problems are echoed back and the step is kept
// for retry, anything else becomes a generic retry-later reply with the
// state left unchanged.
func (c *Coordinator) Dispatch(ctx context.Context, ev transport.Event) error {
	lock := c.acquire(ev.Identity)
	defer c.release(ev.Identity, lock)

	ctx = context.WithValue(ctx, logger.IdentityKey, ev.Identity)

	state, err := c.store.Get(ctx, ev.Identity)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load session state", "error", err)
		return c.replyRetry(ctx, ev.Identity)
	}

	conv := &Conversation{Identity: ev.Identity, State: state, store: c.store}

	handler := c.route(ev, state)
	if handler == nil {
		logger.DebugContext(ctx, "No handler for event", "kind", ev.Kind)
		return nil
	}

	if err := handler(ctx, ev, conv); err != nil {
		return c.replyError(ctx, ev.Identity, err)
	}
	return nil
}

func (c *Coordinator) route(ev transport.Event, state *domain.SessionState) Handler {
	switch ev.Kind {
	case transport.KindContact:
		return c.contact
	case transport.KindPhoto:
		return c.photo
	case transport.KindAction:
		return c.action
	case transport.KindText:
		if !state.Idle() {
			if h, ok := c.steps[state.Step]; ok {
				return h
			}
		}
		return c.fallback
	default:
		return nil
	}
}

func (c *Coordinator) replyError(ctx context.Context, identity int64, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		// Same step, user retries.
		return c.renderer.ShowText(ctx, identity, ve.Reason+" Please try again.", nil)
	case errors.Is(err, domain.ErrNotFound):
		return c.renderer.ShowText(ctx, identity, "Not found.", nil)
	case errors.Is(err, domain.ErrEmptyCart):
		return c.renderer.ShowText(ctx, identity, "Your cart is empty.", nil)
	default:
		logger.ErrorContext(ctx, "Event handling failed", "error", err)
		return c.replyRetry(ctx, identity)
	}
}

func (c *Coordinator) replyRetry(ctx context.Context, identity int64) error {
	return c.renderer.ShowText(ctx, identity, "Something went wrong, please try again later.", nil)
}
