package guilds

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildboard/guildboard/internal/shared"
)

// Repository persists installed guilds and their settings.
type Repository interface {
	MarkInstalled(ctx context.Context, guild Guild) error
	MarkUninstalled(ctx context.Context, guildID string) error
	IsInstalled(ctx context.Context, guildID string) (bool, error)
	InstalledSet(ctx context.Context, guildIDs []string) (map[string]bool, error)
	ListUninstalled(ctx context.Context) ([]string, error)
	GetSettings(ctx context.Context, guildID string) (Settings, error)
	UpsertSettings(ctx context.Context, settings Settings) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by the provided pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) MarkInstalled(ctx context.Context, guild Guild) error {
	const query = `
		INSERT INTO guilds (id, name, icon_hash, owner_id, installed_at, uninstalled_at)
		VALUES ($1, $2, $3, $4, NOW(), NULL)
		ON CONFLICT (id) DO UPDATE SET
			name           = EXCLUDED.name,
			icon_hash      = EXCLUDED.icon_hash,
			owner_id       = EXCLUDED.owner_id,
			installed_at   = NOW(),
			uninstalled_at = NULL
	`
	if _, err := r.pool.Exec(ctx, query, guild.ID, guild.Name, guild.IconHash, guild.OwnerID); err != nil {
		return fmt.Errorf("guilds: mark installed: %w", err)
	}
	return nil
}

func (r *repository) MarkUninstalled(ctx context.Context, guildID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE guilds SET uninstalled_at = NOW() WHERE id = $1 AND uninstalled_at IS NULL`, guildID)
	if err != nil {
		return fmt.Errorf("guilds: mark uninstalled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) IsInstalled(ctx context.Context, guildID string) (bool, error) {
	var installed bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM guilds WHERE id = $1 AND uninstalled_at IS NULL)`, guildID).Scan(&installed)
	if err != nil {
		return false, fmt.Errorf("guilds: is installed: %w", err)
	}
	return installed, nil
}

func (r *repository) InstalledSet(ctx context.Context, guildIDs []string) (map[string]bool, error) {
	installed := make(map[string]bool, len(guildIDs))
	if len(guildIDs) == 0 {
		return installed, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM guilds WHERE id = ANY($1) AND uninstalled_at IS NULL`, guildIDs)
	if err != nil {
		return nil, fmt.Errorf("guilds: installed set: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("guilds: installed set: %w", err)
		}
		installed[id] = true
	}
	return installed, rows.Err()
}

func (r *repository) ListUninstalled(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM guilds WHERE uninstalled_at IS NOT NULL ORDER BY uninstalled_at`)
	if err != nil {
		return nil, fmt.Errorf("guilds: list uninstalled: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("guilds: list uninstalled: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) GetSettings(ctx context.Context, guildID string) (Settings, error) {
	const query = `
		SELECT guild_id, prefix, locale, timezone, COALESCE(mod_log_channel_id, ''), welcome_enabled, updated_at
		FROM guild_settings
		WHERE guild_id = $1
	`
	var s Settings
	err := r.pool.QueryRow(ctx, query, guildID).Scan(
		&s.GuildID, &s.Prefix, &s.Locale, &s.Timezone, &s.ModLogChannelID, &s.WelcomeEnabled, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, shared.ErrNotFound
		}
		return Settings{}, fmt.Errorf("guilds: get settings: %w", err)
	}
	return s, nil
}

func (r *repository) UpsertSettings(ctx context.Context, settings Settings) error {
	const query = `
		INSERT INTO guild_settings (guild_id, prefix, locale, timezone, mod_log_channel_id, welcome_enabled, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW())
		ON CONFLICT (guild_id) DO UPDATE SET
			prefix             = EXCLUDED.prefix,
			locale             = EXCLUDED.locale,
			timezone           = EXCLUDED.timezone,
			mod_log_channel_id = EXCLUDED.mod_log_channel_id,
			welcome_enabled    = EXCLUDED.welcome_enabled,
			updated_at         = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		settings.GuildID, settings.Prefix, settings.Locale, settings.Timezone,
		settings.ModLogChannelID, settings.WelcomeEnabled,
	)
	if err != nil {
		return fmt.Errorf("guilds: upsert settings: %w", err)
	}
	return nil
}
