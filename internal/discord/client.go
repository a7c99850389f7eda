// Package discord wraps the parts of the Discord REST API the dashboard
// consumes: guild membership lookups with the bot credential and guild
// listings with the signed-in user's own token.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNotFound signals the user is not a member of the guild, or the
	// bot credential cannot see it. Callers treat this as "no roles",
	// not as a failure.
	ErrNotFound = errors.New("discord: not found")
	// ErrUnavailable signals the API could not be reached or answered
	// unexpectedly.
	ErrUnavailable = errors.New("discord: unavailable")
)

// Client wraps interactions with the Discord REST API.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

// NewClient constructs a new client. The timeout bounds every outbound
// call; there is no automatic retry.
func NewClient(baseURL, botToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type guildMember struct {
	Roles []string `json:"roles"`
	Nick  *string  `json:"nick"`
}

// Guild is one entry from the current user's guild list.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// User is the authenticated Discord account.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// GuildMemberRoles returns the role IDs the guild currently assigns to
// the user, fetched with the bot credential so any member can be checked.
func (c *Client) GuildMemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	var member guildMember
	err := c.get(ctx, fmt.Sprintf("%s/guilds/%s/members/%s", c.baseURL, guildID, userID), "Bot "+c.botToken, &member)
	if err != nil {
		return nil, err
	}
	if member.Roles == nil {
		return []string{}, nil
	}
	return member.Roles, nil
}

// UserGuilds returns the guilds visible to the bearer token's owner.
func (c *Client) UserGuilds(ctx context.Context, bearerToken string) ([]Guild, error) {
	var guilds []Guild
	if err := c.get(ctx, fmt.Sprintf("%s/users/@me/guilds", c.baseURL), "Bearer "+bearerToken, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// CurrentUser returns the account behind the bearer token.
func (c *Client) CurrentUser(ctx context.Context, bearerToken string) (*User, error) {
	var user User
	if err := c.get(ctx, fmt.Sprintf("%s/users/@me", c.baseURL), "Bearer "+bearerToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) get(ctx context.Context, url, authorization string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}
