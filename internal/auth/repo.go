package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users and login session records.
type Repository interface {
	UpsertUser(ctx context.Context, user User) error
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, userAgent string) error
	DeleteSession(ctx context.Context, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) UpsertUser(ctx context.Context, user User) error {
	const query = `
		INSERT INTO users (id, username, global_name, avatar_hash, created_at, last_login_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			username      = EXCLUDED.username,
			global_name   = EXCLUDED.global_name,
			avatar_hash   = EXCLUDED.avatar_hash,
			last_login_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.GlobalName, user.AvatarHash); err != nil {
		return fmt.Errorf("auth: upsert user: %w", err)
	}
	return nil
}

func (r *repository) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, userAgent string) error {
	const query = `
		INSERT INTO login_sessions (id, user_id, expires_at, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, id, userID, expiresAt, ip, userAgent); err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

func (r *repository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM login_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}
