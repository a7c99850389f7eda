package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/guildboard/guildboard/internal/access"
)

// GrantBackfill retries first-access grants that failed during login,
// typically because the database was briefly unavailable.
type GrantBackfill struct {
	grants *access.Service
	logger *slog.Logger
}

// NewGrantBackfill constructs the job.
func NewGrantBackfill(grants *access.Service, logger *slog.Logger) *GrantBackfill {
	return &GrantBackfill{grants: grants, logger: logger}
}

// Handle processes TaskTypeGrantBackfill tasks.
func (j *GrantBackfill) Handle(ctx context.Context, t *asynq.Task) error {
	var payload GrantBackfillPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.GuildID == "" || payload.UserID == "" {
		return asynq.SkipRetry
	}

	if err := j.grants.EnsureFirstAccessGrant(ctx, payload.GuildID, payload.UserID); err != nil {
		return err
	}
	j.logger.Info("grant backfill: ensured first-access grant",
		slog.String("guild_id", payload.GuildID),
		slog.String("user_id", payload.UserID),
	)
	return nil
}
