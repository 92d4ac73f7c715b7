package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

type CartsRepo interface {
	// GetOrCreate is idempotent: carts.user_id is unique, so concurrent
	// calls for one user always land on the same row.
	GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error)
	AddOrIncrement(ctx context.Context, cartID, productID int64) error
	Increment(ctx context.Context, cartID, productID int64) error
	Decrement(ctx context.Context, cartID, productID int64) error
	Remove(ctx context.Context, cartID, productID int64) error
	Lines(ctx context.Context, cartID int64) ([]domain.CartLine, error)
	// Snapshot joins products at call time; prices here are current, not
	// frozen. Freezing happens only in the order-creation transaction.
	Snapshot(ctx context.Context, cartID int64) ([]domain.SnapshotLine, error)
}

type CartsRepoImpl struct{ pool *pgxpool.Pool }

func NewCartsRepo(pool *pgxpool.Pool) *CartsRepoImpl { return &CartsRepoImpl{pool: pool} }

func (r *CartsRepoImpl) GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, updated_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.Cart
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&c.ID, &c.UserID, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CartsRepoImpl) AddOrIncrement(ctx context.Context, cartID, productID int64) error {
	const q = `
INSERT INTO cart_items (cart_id, product_id, qty)
VALUES ($1, $2, 1)
ON CONFLICT (cart_id, product_id) DO UPDATE SET qty = cart_items.qty + 1`
	return r.mutate(ctx, cartID, q, cartID, productID)
}

func (r *CartsRepoImpl) Increment(ctx context.Context, cartID, productID int64) error {
	// Missing line is a no-op, mirroring AddOrIncrement only for existing rows.
	const q = `UPDATE cart_items SET qty = qty + 1 WHERE cart_id=$1 AND product_id=$2`
	return r.mutate(ctx, cartID, q, cartID, productID)
}

func (r *CartsRepoImpl) Decrement(ctx context.Context, cartID, productID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE cart_items SET qty = qty - 1 WHERE cart_id=$1 AND product_id=$2 AND qty > 1`,
		cartID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Qty was 1 (drop the line) or the line never existed (no-op).
		if _, err := tx.Exec(ctx,
			`DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`,
			cartID, productID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at=now() WHERE id=$1`, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CartsRepoImpl) Remove(ctx context.Context, cartID, productID int64) error {
	const q = `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`
	return r.mutate(ctx, cartID, q, cartID, productID)
}

// mutate runs one cart_items statement together with the cart's updated_at
// bump in a single transaction.
func (r *CartsRepoImpl) mutate(ctx context.Context, cartID int64, q string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("cart mutation: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at=now() WHERE id=$1`, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CartsRepoImpl) Lines(ctx context.Context, cartID int64) ([]domain.CartLine, error) {
	const q = `SELECT product_id, qty FROM cart_items WHERE cart_id=$1 ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.Qty); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *CartsRepoImpl) Snapshot(ctx context.Context, cartID int64) ([]domain.SnapshotLine, error) {
	const q = `
SELECT p.id, p.title, p.description, p.price, p.currency, p.photo_url, p.is_active, ci.qty
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.SnapshotLine
	for rows.Next() {
		var l domain.SnapshotLine
		if err := rows.Scan(
			&l.Product.ID, &l.Product.Title, &l.Product.Description,
			&l.Product.Price, &l.Product.Currency, &l.Product.PhotoURL,
			&l.Product.Active, &l.Qty,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
