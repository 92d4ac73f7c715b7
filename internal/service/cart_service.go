package service

import (
	"context"
	"fmt"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/repo/postgres"
)

// CartService maintains the single live cart per user. Quantities of
// persisted lines are always >= 1: decrementing past 1 drops the line, and
// decrement/remove on an absent line is a no-op rather than an error.
type CartService interface {
	GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error)
	AddOrIncrement(ctx context.Context, userID, productID int64) error
	Increment(ctx context.Context, userID, productID int64) error
	Decrement(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
	// Snapshot reads product prices at call time.
	Snapshot(ctx context.Context, userID int64) ([]domain.SnapshotLine, error)
}

type cartService struct {
	carts    postgres.CartsRepo
	products postgres.ProductsRepo
}

func NewCartService(carts postgres.CartsRepo, products postgres.ProductsRepo) CartService {
	return &cartService{carts: carts, products: products}
}

func (s *cartService) GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error) {
	return s.carts.GetOrCreate(ctx, userID)
}

func (s *cartService) AddOrIncrement(ctx context.Context, userID, productID int64) error {
	// Adding checks the product exists; incrementing an existing line does not.
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve cart: %w", err)
	}
	return s.carts.AddOrIncrement(ctx, cart.ID, productID)
}

func (s *cartService) Increment(ctx context.Context, userID, productID int64) error {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve cart: %w", err)
	}
	return s.carts.Increment(ctx, cart.ID, productID)
}

func (s *cartService) Decrement(ctx context.Context, userID, productID int64) error {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve cart: %w", err)
	}
	return s.carts.Decrement(ctx, cart.ID, productID)
}

func (s *cartService) Remove(ctx context.Context, userID, productID int64) error {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve cart: %w", err)
	}
	return s.carts.Remove(ctx, cart.ID, productID)
}

func (s *cartService) Snapshot(ctx context.Context, userID int64) ([]domain.SnapshotLine, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve cart: %w", err)
	}
	return s.carts.Snapshot(ctx, cart.ID)
}
