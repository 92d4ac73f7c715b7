package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/repo/postgres"
)

// CatalogService is the read surface of the catalog plus the editable
// section content shown on category cards.
type CatalogService interface {
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// SectionText returns the admin-edited text for a content key, or
	// fallback when nothing has been set.
	SectionText(ctx context.Context, key, fallback string) (string, error)
	SectionPhotos(ctx context.Context, key string) ([]string, error)
}

type catalogService struct {
	products postgres.ProductsRepo
	content  postgres.ContentRepo
}

func NewCatalogService(products postgres.ProductsRepo, content postgres.ContentRepo) CatalogService {
	return &catalogService{products: products, content: content}
}

func (s *catalogService) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListActive(ctx)
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *catalogService) SectionText(ctx context.Context, key, fallback string) (string, error) {
	text, err := s.content.GetText(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("load section %q: %w", key, err)
	}
	return text, nil
}

func (s *catalogService) SectionPhotos(ctx context.Context, key string) ([]string, error) {
	return s.content.ListPhotos(ctx, key)
}
