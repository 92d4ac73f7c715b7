package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/session"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

// startBrandOrder enters the free-form order flow from a brand card.
func (f *Flows) startBrandOrder(ctx context.Context, ev transport.Event, conv *session.Conversation, brand string) error {
	if err := conv.Transition(ctx, &domain.SessionState{
		Step:  domain.StepAwaitingDetails,
		Order: &domain.OrderScratch{Kind: domain.CategoryBrand, Brand: brand},
	}); err != nil {
		return err
	}

	text := fmt.Sprintf("You picked %s.\n\nSend the FLAVOR and QUANTITY in one message.\nExample: \"Cola Ice x 2\"", capitalize(brand))
	return f.render.ShowText(ctx, ev.Identity, text,
		[]transport.Option{{Label: "Back", Action: actCancelStep}})
}

func (f *Flows) startCategoryOrder(ctx context.Context, ev transport.Event, conv *session.Conversation, kind domain.CategoryKind) error {
	if err := conv.Transition(ctx, &domain.SessionState{
		Step:  domain.StepAwaitingDetails,
		Order: &domain.OrderScratch{Kind: kind},
	}); err != nil {
		return err
	}

	prompt := "Send the FLAVOR and QUANTITY.\nExample: \"Mango 30ml x 2\""
	if kind == domain.CategoryPods {
		prompt = "Send the MODEL (and color/bundle if needed)."
	}
	return f.render.ShowText(ctx, ev.Identity, prompt,
		[]transport.Option{{Label: "Back", Action: actCancelStep}})
}

func (f *Flows) onOrderDetails(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	details := strings.TrimSpace(ev.Text)
	if details == "" {
		return domain.Validation("the order details cannot be empty.")
	}

	scratch := conv.State.Order
	if scratch == nil {
		scratch = &domain.OrderScratch{}
	}
	scratch.Details = details

	if err := conv.Transition(ctx, &domain.SessionState{
		Step:  domain.StepAwaitingConfirm,
		Order: scratch,
	}); err != nil {
		return err
	}

	return f.render.ShowText(ctx, ev.Identity, "Please check the details:\n\n"+details,
		[]transport.Option{
			{Label: "Place order", Action: actConfirm},
			{Label: "Back", Action: actCancelStep},
		})
}

func (f *Flows) confirmManualOrder(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	if conv.State == nil || conv.State.Step != domain.StepAwaitingConfirm || conv.State.Order == nil {
		// Stale confirm button from an earlier message.
		return f.showMainMenu(ctx, ev.Identity)
	}
	scratch := conv.State.Order

	user, err := f.users.FindByChatID(ctx, ev.Identity)
	if err != nil {
		return err
	}

	if err := f.render.ShowText(ctx, ev.Identity,
		"Your order is in! We will contact you within 5 minutes.", nil); err != nil {
		return err
	}

	title := string(scratch.Kind)
	if scratch.Brand != "" {
		title = "Brand: " + capitalize(scratch.Brand)
	}
	notice := fmt.Sprintf("New manual order\n%s\nBuyer: %s (chat_id=%d)\nDetails: %s",
		title, user.Tag(), ev.Identity, scratch.Details)
	if err := f.bus.Publish(ctx, events.NotifyAdmin, events.AdminNoticeEvent{Text: notice}); err != nil {
		// Notification is best effort; the order confirmation stands.
		logger.ErrorContext(ctx, "Failed to publish admin notice", "error", err)
	}

	return conv.End(ctx)
}

// cancelStep aborts the current step without touching the cart or creating
// an order, and restores the menu the flow was entered from.
func (f *Flows) cancelStep(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	state := conv.State
	if err := conv.End(ctx); err != nil {
		return err
	}

	if state != nil && state.Order != nil {
		switch state.Order.Kind {
		case domain.CategoryBrand:
			return f.showCategory(ctx, ev.Identity, "disposables")
		case domain.CategoryLiquids:
			return f.showCategory(ctx, ev.Identity, "liquids")
		case domain.CategoryPods:
			return f.showCategory(ctx, ev.Identity, "pods")
		}
	}
	if state != nil && state.Checkout != nil {
		return f.showCart(ctx, ev)
	}
	return f.showMainMenu(ctx, ev.Identity)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
