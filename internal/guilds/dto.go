package guilds

type UpdateSettingsRequest struct {
	Prefix          string `json:"prefix" validate:"required,min=1,max=8"`
	Locale          string `json:"locale,omitempty" validate:"max=35"`
	Timezone        string `json:"timezone,omitempty" validate:"max=64"`
	ModLogChannelID string `json:"mod_log_channel_id,omitempty" validate:"omitempty,numeric,max=32"`
	WelcomeEnabled  bool   `json:"welcome_enabled"`
}

type GuildListResponse struct {
	Guilds []Summary `json:"guilds"`
	Total  int       `json:"total"`
}
