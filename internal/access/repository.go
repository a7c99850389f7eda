package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and writes access grants and allowed-role rows.
type Repository interface {
	FindGrant(ctx context.Context, guildID, userID string) (*Grant, error)
	UpsertGrant(ctx context.Context, grant Grant) error
	RevokeGrant(ctx context.Context, guildID, userID, revokedBy, note string) error
	ListGrants(ctx context.Context, guildID string) ([]Grant, error)
	ListAllowedRoles(ctx context.Context, guildID string) ([]string, error)
	AllowRole(ctx context.Context, guildID, roleID string) error
	DisallowRole(ctx context.Context, guildID, roleID string) error
	DeleteGuildRoles(ctx context.Context, guildID string) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository returns a Repository backed by the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) FindGrant(ctx context.Context, guildID, userID string) (*Grant, error) {
	const query = `
		SELECT guild_id, user_id, has_access, granted_by, notes, granted_at
		FROM guild_access_grants
		WHERE guild_id = $1 AND user_id = $2
	`
	var g Grant
	var notes pgtype.Text
	var grantedAt pgtype.Timestamptz
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(
		&g.GuildID, &g.UserID, &g.HasAccess, &g.GrantedBy, &notes, &grantedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("access: find grant: %w", err)
	}
	if notes.Valid {
		g.Notes = notes.String
	}
	if grantedAt.Valid {
		g.GrantedAt = grantedAt.Time
	}
	return &g, nil
}

func (r *repository) UpsertGrant(ctx context.Context, grant Grant) error {
	const query = `
		INSERT INTO guild_access_grants (guild_id, user_id, has_access, granted_by, notes, granted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			has_access = EXCLUDED.has_access,
			granted_by = EXCLUDED.granted_by,
			notes      = EXCLUDED.notes,
			granted_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, grant.GuildID, grant.UserID, grant.HasAccess, grant.GrantedBy, grant.Notes)
	if err != nil {
		return fmt.Errorf("access: upsert grant: %w", err)
	}
	return nil
}

func (r *repository) RevokeGrant(ctx context.Context, guildID, userID, revokedBy, note string) error {
	const query = `
		UPDATE guild_access_grants
		SET has_access = FALSE, granted_by = $3, notes = $4, granted_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, guildID, userID, revokedBy, note)
	if err != nil {
		return fmt.Errorf("access: revoke grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListGrants(ctx context.Context, guildID string) ([]Grant, error) {
	const query = `
		SELECT guild_id, user_id, has_access, granted_by, notes, granted_at
		FROM guild_access_grants
		WHERE guild_id = $1
		ORDER BY granted_at DESC
	`
	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("access: list grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var notes pgtype.Text
		var grantedAt pgtype.Timestamptz
		if err := rows.Scan(&g.GuildID, &g.UserID, &g.HasAccess, &g.GrantedBy, &notes, &grantedAt); err != nil {
			return nil, fmt.Errorf("access: scan grant: %w", err)
		}
		if notes.Valid {
			g.Notes = notes.String
		}
		if grantedAt.Valid {
			g.GrantedAt = grantedAt.Time
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *repository) ListAllowedRoles(ctx context.Context, guildID string) ([]string, error) {
	const query = `
		SELECT role_id FROM guild_allowed_roles
		WHERE guild_id = $1 AND can_use_app = TRUE
		ORDER BY role_id
	`
	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("access: list allowed roles: %w", err)
	}
	defer rows.Close()

	var roleIDs []string
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return nil, fmt.Errorf("access: scan role: %w", err)
		}
		roleIDs = append(roleIDs, roleID)
	}
	return roleIDs, rows.Err()
}

func (r *repository) AllowRole(ctx context.Context, guildID, roleID string) error {
	const query = `
		INSERT INTO guild_allowed_roles (guild_id, role_id, can_use_app)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (guild_id, role_id) DO UPDATE SET can_use_app = TRUE
	`
	if _, err := r.db.Exec(ctx, query, guildID, roleID); err != nil {
		return fmt.Errorf("access: allow role: %w", err)
	}
	return nil
}

func (r *repository) DisallowRole(ctx context.Context, guildID, roleID string) error {
	// A role that grants nothing has no row at all.
	const query = `DELETE FROM guild_allowed_roles WHERE guild_id = $1 AND role_id = $2`
	tag, err := r.db.Exec(ctx, query, guildID, roleID)
	if err != nil {
		return fmt.Errorf("access: disallow role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteGuildRoles(ctx context.Context, guildID string) (int64, error) {
	const query = `DELETE FROM guild_allowed_roles WHERE guild_id = $1`
	tag, err := r.db.Exec(ctx, query, guildID)
	if err != nil {
		return 0, fmt.Errorf("access: delete guild roles: %w", err)
	}
	return tag.RowsAffected(), nil
}
