// Package guilds tracks which guilds the bot is installed in and the
// per-guild dashboard settings.
package guilds

import "time"

// Guild is an installed-guild row maintained by the bot lifecycle
// webhooks. UninstalledAt is set when the bot leaves; the row is kept so
// background cleanup can sweep dependent data.
type Guild struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	IconHash      string     `json:"icon_hash,omitempty"`
	OwnerID       string     `json:"owner_id"`
	InstalledAt   time.Time  `json:"installed_at"`
	UninstalledAt *time.Time `json:"uninstalled_at,omitempty"`
}

// Settings holds the per-guild dashboard configuration.
type Settings struct {
	GuildID         string    `json:"guild_id"`
	Prefix          string    `json:"prefix"`
	Locale          string    `json:"locale"`
	Timezone        string    `json:"timezone"`
	ModLogChannelID string    `json:"mod_log_channel_id,omitempty"`
	WelcomeEnabled  bool      `json:"welcome_enabled"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultSettings returns the configuration a guild has before anyone
// touches the settings page.
func DefaultSettings(guildID string) Settings {
	return Settings{
		GuildID:  guildID,
		Prefix:   "!",
		Locale:   "en-US",
		Timezone: "UTC",
	}
}

// Summary merges one of the caller's Discord guilds with its local
// install state, for the "my guilds" listing.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IconHash  string `json:"icon_hash,omitempty"`
	Owner     bool   `json:"owner"`
	Installed bool   `json:"installed"`
}
