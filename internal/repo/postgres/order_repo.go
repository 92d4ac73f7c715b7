package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

type OrdersRepo interface {
	// CreateFromCart converts the cart into an order in one transaction:
	// snapshot the lines at their current prices, insert the header and the
	// frozen line records, clear the cart. Either everything commits or the
	// cart stays fully intact.
	CreateFromCart(ctx context.Context, userID, cartID int64, address string, note *string) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error)
}

type OrdersRepoImpl struct{ pool *pgxpool.Pool }

func NewOrdersRepo(pool *pgxpool.Pool) *OrdersRepoImpl { return &OrdersRepoImpl{pool: pool} }

func (r *OrdersRepoImpl) CreateFromCart(ctx context.Context, userID, cartID int64, address string, note *string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the cart lines so a concurrent mutation cannot slip between the
	// snapshot and the clear.
	rows, err := tx.Query(ctx, `
SELECT p.id, p.title, p.price, p.currency, ci.qty
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.id
FOR UPDATE OF ci`, cartID)
	if err != nil {
		return nil, err
	}

	var (
		lines    []domain.OrderLine
		currency string
		total    int64
	)
	for rows.Next() {
		var l domain.OrderLine
		var curr string
		if err := rows.Scan(&l.ProductID, &l.Title, &l.Price, &curr, &l.Qty); err != nil {
			rows.Close()
			return nil, err
		}
		if currency == "" {
			currency = curr
		} else if curr != currency {
			rows.Close()
			return nil, domain.ErrMixedCurrency
		}
		total += l.Price * int64(l.Qty)
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	order := domain.Order{
		UserID:   userID,
		Amount:   total,
		Currency: currency,
		Status:   domain.OrderPending,
		Address:  address,
		Note:     note,
		Lines:    lines,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO orders (user_id, amount, currency, status, address, note)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`,
		userID, total, currency, domain.OrderPending, address, note,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, qty, price)
VALUES ($1, $2, $3, $4)`,
			order.ID, l.ProductID, l.Qty, l.Price); err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at=now() WHERE id=$1`, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order tx: %w", err)
	}
	return &order, nil
}

func (r *OrdersRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `SELECT id, user_id, amount, currency, status, address, note, created_at FROM orders WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var o domain.Order
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.UserID, &o.Amount, &o.Currency, &o.Status, &o.Address, &o.Note, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT oi.product_id, COALESCE(p.title, ''), oi.qty, oi.price
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = $1
ORDER BY oi.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ProductID, &l.Title, &l.Qty, &l.Price); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}

func (r *OrdersRepoImpl) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	const q = `
SELECT id, user_id, amount, currency, status, address, note, created_at
FROM orders WHERE user_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Amount, &o.Currency, &o.Status, &o.Address, &o.Note, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
