package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

type ChallengesRepo interface {
	Create(ctx context.Context, userID int64, email, codeHash string, expiresAt time.Time) (*domain.EmailChallenge, error)
	// Latest returns the most recently issued unused, unexpired challenge
	// for the user. Stale rows are never selected once a newer valid one
	// exists.
	Latest(ctx context.Context, userID int64) (*domain.EmailChallenge, error)
	// Consume marks the challenge used. It reports false if the row was
	// already used or has expired in the meantime, so a code can never be
	// redeemed twice even under a race.
	Consume(ctx context.Context, id int64) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type ChallengesRepoImpl struct{ pool *pgxpool.Pool }

func NewChallengesRepo(pool *pgxpool.Pool) *ChallengesRepoImpl {
	return &ChallengesRepoImpl{pool: pool}
}

func (r *ChallengesRepoImpl) Create(ctx context.Context, userID int64, email, codeHash string, expiresAt time.Time) (*domain.EmailChallenge, error) {
	const q = `
INSERT INTO email_challenges (user_id, email, code_hash, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, email, code_hash, expires_at, used_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.EmailChallenge
	err := r.pool.QueryRow(ctx, q, userID, email, codeHash, expiresAt).Scan(
		&c.ID, &c.UserID, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.UsedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChallengesRepoImpl) Latest(ctx context.Context, userID int64) (*domain.EmailChallenge, error) {
	const q = `
SELECT id, user_id, email, code_hash, expires_at, used_at
FROM email_challenges
WHERE user_id = $1
  AND used_at IS NULL
  AND expires_at > now()
ORDER BY id DESC
LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.EmailChallenge
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&c.ID, &c.UserID, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.UsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChallengesRepoImpl) Consume(ctx context.Context, id int64) (bool, error) {
	const q = `
UPDATE email_challenges
SET used_at = now()
WHERE id = $1
  AND used_at IS NULL
  AND expires_at > now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ChallengesRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `
DELETE FROM email_challenges
WHERE (used_at IS NOT NULL AND used_at < now() - interval '30 days')
   OR (used_at IS NULL AND expires_at < now() - interval '7 days')`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
