package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

type ProductsRepo interface {
	Create(ctx context.Context, title, description string, price int64, currency string, photoURL *string) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type ProductsRepoImpl struct{ pool *pgxpool.Pool }

func NewProductsRepo(pool *pgxpool.Pool) *ProductsRepoImpl { return &ProductsRepoImpl{pool: pool} }

const productCols = `id, title, description, price, currency, photo_url, is_active`

func (r *ProductsRepoImpl) Create(ctx context.Context, title, description string, price int64, currency string, photoURL *string) (*domain.Product, error) {
	const q = `
INSERT INTO products (title, description, price, currency, photo_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Product
	err := r.pool.QueryRow(ctx, q, title, description, price, currency, photoURL).Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Currency, &p.PhotoURL, &p.Active,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductsRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Currency, &p.PhotoURL, &p.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductsRepoImpl) ListActive(ctx context.Context) ([]domain.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE is_active ORDER BY id DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Currency, &p.PhotoURL, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductsRepoImpl) SetActive(ctx context.Context, id int64, active bool) error {
	const q = `UPDATE products SET is_active=$1 WHERE id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
