package discord_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildboard/guildboard/internal/discord"
	_ "github.com/guildboard/guildboard/testing"
)

func TestGuildMemberRoles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/G1/members/U1", r.URL.Path)
		assert.Equal(t, "Bot bot-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"roles":["111","222"],"nick":"tester"}`))
	}))
	defer srv.Close()

	client := discord.NewClient(srv.URL, "bot-token", time.Second)
	roles, err := client.GuildMemberRoles(context.Background(), "G1", "U1")
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, roles)
}

func TestGuildMemberRolesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"roles":null}`))
	}))
	defer srv.Close()

	client := discord.NewClient(srv.URL, "bot-token", time.Second)
	roles, err := client.GuildMemberRoles(context.Background(), "G1", "U1")
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestGuildMemberRolesNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"Unknown Member"}`, status)
		}))

		client := discord.NewClient(srv.URL, "bot-token", time.Second)
		_, err := client.GuildMemberRoles(context.Background(), "G1", "U1")
		assert.ErrorIs(t, err, discord.ErrNotFound, "status %d", status)
		srv.Close()
	}
}

func TestGuildMemberRolesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := discord.NewClient(srv.URL, "bot-token", time.Second)
	_, err := client.GuildMemberRoles(context.Background(), "G1", "U1")
	assert.ErrorIs(t, err, discord.ErrUnavailable)
}

func TestGuildMemberRolesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"roles": "not-an-array"`))
	}))
	defer srv.Close()

	client := discord.NewClient(srv.URL, "bot-token", time.Second)
	_, err := client.GuildMemberRoles(context.Background(), "G1", "U1")
	assert.ErrorIs(t, err, discord.ErrUnavailable)
}

func TestGuildMemberRolesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"roles":[]}`))
	}))
	defer srv.Close()

	client := discord.NewClient(srv.URL, "bot-token", 20*time.Millisecond)
	_, err := client.GuildMemberRoles(context.Background(), "G1", "U1")
	require.Error(t, err)
	assert.ErrorIs(t, err, discord.ErrUnavailable)
	assert.False(t, errors.Is(err, discord.ErrNotFound))
}

func TestUserGuilds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/@me/guilds", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"G1","name":"First","owner":true,"permissions":"8"},{"id":"G2","name":"Second","owner":false,"permissions":"0"}]`))
	}))
	defer srv.Close()

	client := discord.NewClient(srv.URL, "bot-token", time.Second)
	guilds, err := client.UserGuilds(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, guilds, 2)
	assert.True(t, guilds[0].Owner)
	assert.Equal(t, "G2", guilds[1].ID)
}

func TestCurrentUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/@me", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"U1","username":"tester","global_name":"Tester"}`))
	}))
	defer srv.Close()

	client := discord.NewClient(srv.URL, "bot-token", time.Second)
	user, err := client.CurrentUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "U1", user.ID)
	assert.Equal(t, "tester", user.Username)
}
