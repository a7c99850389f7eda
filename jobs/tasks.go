package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRoleCleanup sweeps allowed-role rows for guilds the bot
	// has left.
	TaskTypeRoleCleanup = "access:role-cleanup"
	// TaskTypeGrantBackfill retries a first-access grant that failed
	// during login.
	TaskTypeGrantBackfill = "access:grant-backfill"
)

// GrantBackfillPayload identifies the grant to retry.
type GrantBackfillPayload struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
}

// NewRoleCleanupTask constructs the role cleanup task. It carries no
// payload: the sweep always covers every uninstalled guild.
func NewRoleCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRoleCleanup, nil)
}

// NewGrantBackfillTask constructs a grant backfill task.
func NewGrantBackfillTask(payload GrantBackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGrantBackfill, data), nil
}
