package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

type UsersRepo interface {
	// EnsureByChatID registers the chat identity on first contact and is a
	// cheap no-op afterwards.
	EnsureByChatID(ctx context.Context, chatID int64, fullName, username string) (*domain.User, error)
	FindByChatID(ctx context.Context, chatID int64) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// SetPhoneVerified is the trusted contact-share path: phone and the
	// verified flag flip together, no challenge involved.
	SetPhoneVerified(ctx context.Context, chatID int64, phone string) error
	SetEmailVerified(ctx context.Context, userID int64, email string) error
	ListRecent(ctx context.Context, limit int) ([]domain.User, error)
}

type UsersRepoImpl struct{ pool *pgxpool.Pool }

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepoImpl { return &UsersRepoImpl{pool: pool} }

const userCols = `id, chat_id, COALESCE(full_name,''), COALESCE(username,''), phone, email, is_verified, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.ChatID, &u.FullName, &u.Username, &u.Phone, &u.Email, &u.Verified, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepoImpl) EnsureByChatID(ctx context.Context, chatID int64, fullName, username string) (*domain.User, error) {
	const q = `
INSERT INTO users (chat_id, full_name, username)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id) DO UPDATE
  SET full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), users.full_name),
      username  = COALESCE(NULLIF(EXCLUDED.username, ''), users.username)
RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, chatID, fullName, username))
}

func (r *UsersRepoImpl) FindByChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE chat_id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, chatID))
}

func (r *UsersRepoImpl) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *UsersRepoImpl) SetPhoneVerified(ctx context.Context, chatID int64, phone string) error {
	const q = `UPDATE users SET phone=$1, is_verified=TRUE WHERE chat_id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, phone, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UsersRepoImpl) SetEmailVerified(ctx context.Context, userID int64, email string) error {
	const q = `UPDATE users SET email=$1, is_verified=TRUE WHERE id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, email, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UsersRepoImpl) ListRecent(ctx context.Context, limit int) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users ORDER BY id DESC LIMIT $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.ChatID, &u.FullName, &u.Username, &u.Phone, &u.Email, &u.Verified, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
