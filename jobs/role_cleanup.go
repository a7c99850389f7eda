package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/guildboard/guildboard/internal/shared"
)

const roleGCActor = "system:role-gc"

// UninstalledLister enumerates guilds the bot has left.
type UninstalledLister interface {
	ListUninstalled(ctx context.Context) ([]string, error)
}

// RoleSweeper removes a guild's allowed-role rows.
type RoleSweeper interface {
	DeleteGuildRoles(ctx context.Context, guildID string) (int64, error)
}

// RoleCleanup deletes allowed-role configuration for guilds the bot has
// left. Decisions cached before the sweep expire on their own; deleting
// the rows just guarantees no new positive decision is ever computed
// for a departed guild.
type RoleCleanup struct {
	guilds  UninstalledLister
	sweeper RoleSweeper
	audit   *shared.AuditLogger
	logger  *slog.Logger
}

// NewRoleCleanup constructs the job. audit may be nil in tests.
func NewRoleCleanup(guilds UninstalledLister, sweeper RoleSweeper, audit *shared.AuditLogger, logger *slog.Logger) *RoleCleanup {
	return &RoleCleanup{guilds: guilds, sweeper: sweeper, audit: audit, logger: logger}
}

// Handle processes TaskTypeRoleCleanup tasks. One failing guild does
// not abort the sweep; the task only fails if the listing itself fails.
func (j *RoleCleanup) Handle(ctx context.Context, t *asynq.Task) error {
	guildIDs, err := j.guilds.ListUninstalled(ctx)
	if err != nil {
		return err
	}

	for _, guildID := range guildIDs {
		deleted, err := j.sweeper.DeleteGuildRoles(ctx, guildID)
		if err != nil {
			j.logger.Warn("role cleanup: sweep failed",
				slog.String("guild_id", guildID),
				slog.Any("error", err),
			)
			continue
		}
		if deleted == 0 {
			continue
		}
		j.logger.Info("role cleanup: swept guild",
			slog.String("guild_id", guildID),
			slog.Int64("deleted", deleted),
		)
		if j.audit != nil {
			err := j.audit.Record(ctx, shared.AuditLog{
				ActorID:  roleGCActor,
				Action:   "access.role.gc",
				Entity:   "guild",
				EntityID: guildID,
				Meta:     map[string]any{"deleted": deleted},
			})
			if err != nil {
				j.logger.Warn("role cleanup: audit record failed", slog.Any("error", err))
			}
		}
	}
	return nil
}
