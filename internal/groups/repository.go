package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildboard/guildboard/internal/platform/db"
)

// Repository persists server groups and their memberships. Every query
// is scoped by user_id so one user can never see or mutate another's
// groups.
type Repository interface {
	Create(ctx context.Context, group Group) error
	Get(ctx context.Context, userID string, id uuid.UUID) (Group, error)
	List(ctx context.Context, userID string) ([]Group, error)
	Rename(ctx context.Context, userID string, id uuid.UUID, name string) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	AddMember(ctx context.Context, userID string, id uuid.UUID, guildID string) error
	RemoveMember(ctx context.Context, userID string, id uuid.UUID, guildID string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, group Group) error {
	const query = `
		INSERT INTO server_groups (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	if _, err := r.pool.Exec(ctx, query, group.ID, group.UserID, group.Name); err != nil {
		return fmt.Errorf("groups: create: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, userID string, id uuid.UUID) (Group, error) {
	const query = `
		SELECT g.id, g.user_id, g.name, g.created_at, g.updated_at,
		       COALESCE(ARRAY_AGG(m.guild_id ORDER BY m.added_at) FILTER (WHERE m.guild_id IS NOT NULL), '{}')
		FROM server_groups g
		LEFT JOIN server_group_members m ON m.group_id = g.id
		WHERE g.id = $1 AND g.user_id = $2
		GROUP BY g.id
	`
	var group Group
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&group.ID, &group.UserID, &group.Name, &group.CreatedAt, &group.UpdatedAt, &group.GuildIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, ErrNotFound
		}
		return Group{}, fmt.Errorf("groups: get: %w", err)
	}
	return group, nil
}

func (r *repository) List(ctx context.Context, userID string) ([]Group, error) {
	const query = `
		SELECT g.id, g.user_id, g.name, g.created_at, g.updated_at,
		       COALESCE(ARRAY_AGG(m.guild_id ORDER BY m.added_at) FILTER (WHERE m.guild_id IS NOT NULL), '{}')
		FROM server_groups g
		LEFT JOIN server_group_members m ON m.group_id = g.id
		WHERE g.user_id = $1
		GROUP BY g.id
		ORDER BY g.created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("groups: list: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var group Group
		if err := rows.Scan(&group.ID, &group.UserID, &group.Name, &group.CreatedAt, &group.UpdatedAt, &group.GuildIDs); err != nil {
			return nil, fmt.Errorf("groups: list: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func (r *repository) Rename(ctx context.Context, userID string, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE server_groups SET name = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`, id, userID, name)
	if err != nil {
		return fmt.Errorf("groups: rename: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM server_group_members WHERE group_id = $1`, id); err != nil {
			return fmt.Errorf("groups: delete members: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM server_groups WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("groups: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) AddMember(ctx context.Context, userID string, id uuid.UUID, guildID string) error {
	const query = `
		INSERT INTO server_group_members (group_id, guild_id, added_at)
		SELECT g.id, $3, NOW()
		FROM server_groups g
		WHERE g.id = $1 AND g.user_id = $2
		ON CONFLICT (group_id, guild_id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, id, userID, guildID)
	if err != nil {
		return fmt.Errorf("groups: add member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the group is not the caller's or the member already
		// exists. Re-check ownership so the two cases map correctly.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM server_groups WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists); err != nil {
			return fmt.Errorf("groups: add member: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, userID string, id uuid.UUID, guildID string) error {
	const query = `
		DELETE FROM server_group_members m
		USING server_groups g
		WHERE m.group_id = g.id AND g.id = $1 AND g.user_id = $2 AND m.guild_id = $3
	`
	tag, err := r.pool.Exec(ctx, query, id, userID, guildID)
	if err != nil {
		return fmt.Errorf("groups: remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
