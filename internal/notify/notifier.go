package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

// AdminNotifier delivers order and notice events to the configured admin
// identities. Delivery is decoupled from the transactions that emit the
// events: each recipient is attempted independently and failures are logged
// and dropped, never propagated back.
type AdminNotifier struct {
	adminIDs []int64
	render   transport.Renderer
}

func NewAdminNotifier(adminIDs []int64, render transport.Renderer) *AdminNotifier {
	return &AdminNotifier{adminIDs: adminIDs, render: render}
}

// Subscribe attaches the notifier to the event bus. The queue group keeps
// one delivery per event when several instances run.
func (n *AdminNotifier) Subscribe(bus events.Subscriber) error {
	if err := bus.QueueSubscribe(events.OrderCreated, "admin-notify", n.onOrderCreated); err != nil {
		return err
	}
	return bus.QueueSubscribe(events.NotifyAdmin, "admin-notify", n.onNotice)
}

func (n *AdminNotifier) onOrderCreated(msg *events.Message) {
	var ev events.OrderCreatedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode order created event", "error", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "New order #%d\n", ev.OrderID)
	fmt.Fprintf(&b, "Buyer: %s (chat_id=%d)\n", ev.UserName, ev.ChatID)
	fmt.Fprintf(&b, "Amount: %s\n", domain.FormatMoney(ev.Amount, ev.Currency))
	fmt.Fprintf(&b, "Address: %s\n", ev.Address)
	note := ev.Note
	if note == "" {
		note = "—"
	}
	fmt.Fprintf(&b, "Note: %s\n\n", note)
	for _, l := range ev.Lines {
		fmt.Fprintf(&b, "- %s x %d — %s\n", l.Title, l.Qty, domain.FormatMoney(l.Price*int64(l.Qty), ev.Currency))
	}

	n.broadcast(context.Background(), b.String())
}

func (n *AdminNotifier) onNotice(msg *events.Message) {
	var ev events.AdminNoticeEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode admin notice event", "error", err)
		return
	}
	n.broadcast(context.Background(), ev.Text)
}

func (n *AdminNotifier) broadcast(ctx context.Context, text string) {
	var g errgroup.Group
	for _, adminID := range n.adminIDs {
		adminID := adminID
		g.Go(func() error {
			if err := n.render.ShowText(ctx, adminID, text, nil); err != nil {
				logger.Error("Failed to notify admin", "error", err, "admin_id", adminID)
			}
			// One unreachable admin never blocks the rest.
			return nil
		})
	}
	_ = g.Wait()
}
