// Package access decides whether a user may administer a guild through
// the dashboard. Every route that touches a guild goes through the one
// resolver here; the precedence is explicit grant, then guild ownership,
// then role-based access, and any failure to verify denies.
package access

import (
	"errors"
	"time"
)

// GrantedBySystem marks grants created automatically when the bot is
// first installed, as opposed to grants issued by an administrator.
const GrantedBySystem = "system:first-access"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("access: not found")
	// ErrUnavailable indicates the grant store could not be read. The
	// boundary must deny: "no grant" and "could not check for a grant"
	// are indistinguishable here.
	ErrUnavailable = errors.New("access: unavailable")
)

// Grant is an explicit, role-independent permission record for one user
// in one guild. Unique per (GuildID, UserID); revocation flips HasAccess
// to false rather than deleting the row, so the audit note survives.
type Grant struct {
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	HasAccess bool      `json:"has_access"`
	GrantedBy string    `json:"granted_by"`
	Notes     string    `json:"notes,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

// RolePermission maps a Discord role to dashboard-access eligibility.
// Only rows with CanUseApp true are stored; an absent row means the role
// grants nothing.
type RolePermission struct {
	GuildID   string `json:"guild_id"`
	RoleID    string `json:"role_id"`
	CanUseApp bool   `json:"can_use_app"`
}

// Decision is one resolved access answer for a (guild, user) pair. It is
// cached in process memory only; losing it costs a recomputation, never
// correctness.
type Decision struct {
	CanUseApp     bool      `json:"can_use_app"`
	IsOwner       bool      `json:"is_owner"`
	HasRoleAccess bool      `json:"has_role_access"`
	UserID        string    `json:"user_id"`
	UserRoles     []string  `json:"user_roles"`
	ComputedAt    time.Time `json:"computed_at"`
}
