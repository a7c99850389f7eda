// Package groups implements server groups, per-user named collections
// of guilds used for bulk navigation in the dashboard.
package groups

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound covers both a missing group and a group owned by someone
// else. Callers cannot tell the two apart.
var ErrNotFound = errors.New("groups: not found")

// Group is a named collection of guilds owned by one user.
type Group struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	GuildIDs  []string  `json:"guild_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
