package discord

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuthConfig describes the Discord authorization-code application.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AuthURL and TokenURL override the Discord endpoints in tests.
	AuthURL  string
	TokenURL string
}

// OAuth performs the authorization-code flow against Discord.
type OAuth struct {
	config *oauth2.Config
}

// NewOAuth builds the oauth2 configuration with the identify and guilds
// scopes required by the dashboard.
func NewOAuth(cfg OAuthConfig) *OAuth {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = "https://discord.com/oauth2/authorize"
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = "https://discord.com/api/oauth2/token"
	}
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
	}
}

// AuthCodeURL returns the Discord consent URL for the given state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a bearer token.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("discord: exchange code: %w", err)
	}
	return token.AccessToken, nil
}
