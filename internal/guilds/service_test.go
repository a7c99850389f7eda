package guilds_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildboard/guildboard/internal/discord"
	"github.com/guildboard/guildboard/internal/guilds"
	"github.com/guildboard/guildboard/internal/shared"
	_ "github.com/guildboard/guildboard/testing"
)

type stubRepo struct {
	installed   map[string]bool
	uninstalled []string
	settings    map[string]guilds.Settings
	upserts     []guilds.Settings
}

func (s *stubRepo) MarkInstalled(ctx context.Context, guild guilds.Guild) error {
	if s.installed == nil {
		s.installed = map[string]bool{}
	}
	s.installed[guild.ID] = true
	return nil
}

func (s *stubRepo) MarkUninstalled(ctx context.Context, guildID string) error {
	if !s.installed[guildID] {
		return shared.ErrNotFound
	}
	s.installed[guildID] = false
	s.uninstalled = append(s.uninstalled, guildID)
	return nil
}

func (s *stubRepo) IsInstalled(ctx context.Context, guildID string) (bool, error) {
	return s.installed[guildID], nil
}

func (s *stubRepo) InstalledSet(ctx context.Context, guildIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range guildIDs {
		if s.installed[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (s *stubRepo) ListUninstalled(ctx context.Context) ([]string, error) {
	return s.uninstalled, nil
}

func (s *stubRepo) GetSettings(ctx context.Context, guildID string) (guilds.Settings, error) {
	settings, ok := s.settings[guildID]
	if !ok {
		return guilds.Settings{}, shared.ErrNotFound
	}
	return settings, nil
}

func (s *stubRepo) UpsertSettings(ctx context.Context, settings guilds.Settings) error {
	if s.settings == nil {
		s.settings = map[string]guilds.Settings{}
	}
	s.settings[settings.GuildID] = settings
	s.upserts = append(s.upserts, settings)
	return nil
}

type stubDirectory struct {
	guilds []discord.Guild
	err    error
}

func (s *stubDirectory) UserGuilds(ctx context.Context, bearerToken string) ([]discord.Guild, error) {
	return s.guilds, s.err
}

func TestMyGuildsMergesInstallState(t *testing.T) {
	repo := &stubRepo{installed: map[string]bool{"G1": true}}
	directory := &stubDirectory{guilds: []discord.Guild{
		{ID: "G1", Name: "Alpha", Owner: true},
		{ID: "G2", Name: "Beta"},
	}}
	service := guilds.NewService(repo, directory, nil, slog.Default())

	summaries, err := service.MyGuilds(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.True(t, summaries[0].Installed)
	assert.True(t, summaries[0].Owner)
	assert.False(t, summaries[1].Installed)
	assert.Equal(t, "Beta", summaries[1].Name)
}

func TestMyGuildsDirectoryError(t *testing.T) {
	service := guilds.NewService(&stubRepo{}, &stubDirectory{err: discord.ErrUnavailable}, nil, slog.Default())
	_, err := service.MyGuilds(context.Background(), "token")
	assert.ErrorIs(t, err, discord.ErrUnavailable)
}

func TestGetSettingsFallsBackToDefaults(t *testing.T) {
	service := guilds.NewService(&stubRepo{}, &stubDirectory{}, nil, slog.Default())

	settings, err := service.GetSettings(context.Background(), "G1")
	require.NoError(t, err)
	assert.Equal(t, "!", settings.Prefix)
	assert.Equal(t, "en-US", settings.Locale)
	assert.Equal(t, "UTC", settings.Timezone)
}

func TestUpdateSettingsCanonicalisesLocale(t *testing.T) {
	repo := &stubRepo{}
	service := guilds.NewService(repo, &stubDirectory{}, nil, slog.Default())

	settings, err := service.UpdateSettings(context.Background(), "G1", "U1", guilds.UpdateSettingsRequest{
		Prefix: "?",
		Locale: "en_us",
	})
	require.NoError(t, err)
	assert.Equal(t, "en-US", settings.Locale)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "en-US", repo.upserts[0].Locale)
}

func TestUpdateSettingsRejectsBadLocale(t *testing.T) {
	service := guilds.NewService(&stubRepo{}, &stubDirectory{}, nil, slog.Default())
	_, err := service.UpdateSettings(context.Background(), "G1", "U1", guilds.UpdateSettingsRequest{
		Prefix: "!",
		Locale: "not a locale",
	})
	assert.ErrorIs(t, err, guilds.ErrInvalidSetting)
}

func TestUpdateSettingsRejectsBadTimezone(t *testing.T) {
	service := guilds.NewService(&stubRepo{}, &stubDirectory{}, nil, slog.Default())
	_, err := service.UpdateSettings(context.Background(), "G1", "U1", guilds.UpdateSettingsRequest{
		Prefix:   "!",
		Timezone: "Mars/Olympus_Mons",
	})
	assert.ErrorIs(t, err, guilds.ErrInvalidSetting)
}

func TestMarkUninstalledUnknownGuild(t *testing.T) {
	service := guilds.NewService(&stubRepo{}, &stubDirectory{}, nil, slog.Default())
	err := service.MarkUninstalled(context.Background(), "G404")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
