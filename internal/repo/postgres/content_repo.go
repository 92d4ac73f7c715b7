package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

// ContentRepo backs the editable section texts and photo sets shown on
// category and brand cards. Keys look like "brand:waka", "liquids", "pods".
type ContentRepo interface {
	SetText(ctx context.Context, key, text string) error
	GetText(ctx context.Context, key string) (string, error)
	AddPhoto(ctx context.Context, key, fileID string, sortOrder int) error
	ListPhotos(ctx context.Context, key string) ([]string, error)
	ClearPhotos(ctx context.Context, key string) (int64, error)
}

type ContentRepoImpl struct{ pool *pgxpool.Pool }

func NewContentRepo(pool *pgxpool.Pool) *ContentRepoImpl { return &ContentRepoImpl{pool: pool} }

func (r *ContentRepoImpl) SetText(ctx context.Context, key, text string) error {
	const q = `
INSERT INTO content_sections (key, text)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET text = EXCLUDED.text, updated_at = now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, key, text)
	return err
}

func (r *ContentRepoImpl) GetText(ctx context.Context, key string) (string, error) {
	const q = `SELECT text FROM content_sections WHERE key=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var text string
	err := r.pool.QueryRow(ctx, q, key).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return text, err
}

func (r *ContentRepoImpl) AddPhoto(ctx context.Context, key, fileID string, sortOrder int) error {
	const q = `INSERT INTO content_photos (section_key, file_id, sort_order) VALUES ($1, $2, $3)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, key, fileID, sortOrder)
	return err
}

func (r *ContentRepoImpl) ListPhotos(ctx context.Context, key string) ([]string, error) {
	const q = `SELECT file_id FROM content_photos WHERE section_key=$1 ORDER BY sort_order, id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ContentRepoImpl) ClearPhotos(ctx context.Context, key string) (int64, error) {
	const q = `DELETE FROM content_photos WHERE section_key=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, key)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
