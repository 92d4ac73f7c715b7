package service

import (
	"context"
	"fmt"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/repo/postgres"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

type CheckoutService interface {
	// PlaceOrder converts the user's cart into a pending order. The order
	// header, its frozen lines and the cart clear commit as one unit; on any
	// failure the cart is left untouched and no order exists.
	PlaceOrder(ctx context.Context, chatID int64, address string, note *string) (*domain.Order, error)
	// RecentOrders lists the user's newest orders, frozen as placed.
	RecentOrders(ctx context.Context, chatID int64, limit int) ([]domain.Order, error)
}

type checkoutService struct {
	users  postgres.UsersRepo
	carts  postgres.CartsRepo
	orders postgres.OrdersRepo
	bus    events.Publisher
}

func NewCheckoutService(
	users postgres.UsersRepo,
	carts postgres.CartsRepo,
	orders postgres.OrdersRepo,
	bus events.Publisher,
) CheckoutService {
	return &checkoutService{users: users, carts: carts, orders: orders, bus: bus}
}

func (s *checkoutService) PlaceOrder(ctx context.Context, chatID int64, address string, note *string) (*domain.Order, error) {
	if address == "" {
		return nil, domain.Validation("empty address")
	}

	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	cart, err := s.carts.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve cart: %w", err)
	}

	order, err := s.orders.CreateFromCart(ctx, user.ID, cart.ID, address, note)
	if err != nil {
		return nil, err
	}

	// Notification is a side effect of a committed order; failures here are
	// never allowed to fail the order.
	event := events.OrderCreatedEvent{
		OrderID:   order.ID,
		ChatID:    chatID,
		UserName:  user.Tag(),
		Amount:    order.Amount,
		Currency:  order.Currency,
		Address:   order.Address,
		CreatedAt: order.CreatedAt,
	}
	if note != nil {
		event.Note = *note
	}
	for _, l := range order.Lines {
		event.Lines = append(event.Lines, events.OrderLineEvent{
			ProductID: l.ProductID,
			Title:     l.Title,
			Qty:       l.Qty,
			Price:     l.Price,
		})
	}
	if err := s.bus.Publish(ctx, events.OrderCreated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish order created event", "error", err, "order_id", order.ID)
	}

	return order, nil
}

func (s *checkoutService) RecentOrders(ctx context.Context, chatID int64, limit int) ([]domain.Order, error) {
	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.orders.ListByUser(ctx, user.ID, limit, 0)
}
