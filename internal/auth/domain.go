package auth

import "time"

// User is a dashboard account mirrored from Discord. The ID is the
// Discord user snowflake; there are no local passwords.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	GlobalName  string    `json:"global_name,omitempty"`
	AvatarHash  string    `json:"avatar_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}
