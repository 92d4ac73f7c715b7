package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/session"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
)

// noteSkipSentinel is what the user types to place an order without a note.
const noteSkipSentinel = "-"

// startCheckout enters the address step. An empty cart refuses entry and
// leaves the conversation state untouched.
func (f *Flows) startCheckout(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	user, err := f.users.FindByChatID(ctx, ev.Identity)
	if err != nil {
		return err
	}
	lines, err := f.cart.Snapshot(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return domain.ErrEmptyCart
	}

	if err := conv.Transition(ctx, &domain.SessionState{
		Step:     domain.StepAwaitingAddress,
		Checkout: &domain.CheckoutScratch{},
	}); err != nil {
		return err
	}
	return f.render.ShowText(ctx, ev.Identity,
		"Enter the delivery address (street, house/apartment, city, ZIP):",
		[]transport.Option{{Label: "Back", Action: actCancelStep}})
}

// onAddress takes the next text verbatim as the shipping address.
func (f *Flows) onAddress(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	address := strings.TrimSpace(ev.Text)
	if address == "" {
		return domain.Validation("the address cannot be empty.")
	}

	if err := conv.Transition(ctx, &domain.SessionState{
		Step:     domain.StepAwaitingNote,
		Checkout: &domain.CheckoutScratch{Address: address},
	}); err != nil {
		return err
	}
	return f.render.ShowText(ctx, ev.Identity,
		`Add a note to the order (or send "`+noteSkipSentinel+`"):`,
		[]transport.Option{{Label: "Back", Action: actCancelStep}})
}

// onNote finishes checkout: it runs the order-creation transaction and, only
// if that committed, clears the conversation state.
func (f *Flows) onNote(ctx context.Context, ev transport.Event, conv *session.Conversation) error {
	scratch := conv.State.Checkout
	if scratch == nil || scratch.Address == "" {
		// Scratch was lost; restart rather than guess an address.
		if err := conv.End(ctx); err != nil {
			return err
		}
		return f.render.ShowText(ctx, ev.Identity, "Checkout was interrupted, please start again.", nil)
	}

	var note *string
	if text := strings.TrimSpace(ev.Text); text != noteSkipSentinel {
		note = &text
	}

	order, err := f.checkout.PlaceOrder(ctx, ev.Identity, scratch.Address, note)
	if err != nil {
		// State stays as-is so the user can resend the note and retry.
		return err
	}

	if err := conv.End(ctx); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d placed\n\n", order.ID)
	for _, l := range order.Lines {
		fmt.Fprintf(&b, "- %s x %d — %s\n", l.Title, l.Qty, domain.FormatMoney(l.Price*int64(l.Qty), order.Currency))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\n", domain.FormatMoney(order.Amount, order.Currency))
	b.WriteString("Payment: offline (on delivery or by agreement).\nWe will contact you to confirm the details.")

	return f.render.ShowText(ctx, ev.Identity, b.String(), nil)
}

// showOrders lists the user's recent orders with their frozen totals.
func (f *Flows) showOrders(ctx context.Context, ev transport.Event) error {
	orders, err := f.checkout.RecentOrders(ctx, ev.Identity, 10)
	if err != nil {
		return err
	}

	if len(orders) == 0 {
		return f.render.ShowText(ctx, ev.Identity, "You have no orders yet.", []transport.Option{
			{Label: "To the catalog", Action: actInterests},
			{Label: "Back", Action: actHome},
		})
	}

	var b strings.Builder
	b.WriteString("Your orders\n\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "#%d — %s — %s (%s)\n",
			o.ID, o.CreatedAt.Format("02.01.2006"), domain.FormatMoney(o.Amount, o.Currency), o.Status)
	}
	return f.render.ShowText(ctx, ev.Identity, b.String(), []transport.Option{
		{Label: "Back", Action: actHome},
	})
}
