package guilds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/guildboard/guildboard/internal/discord"
	"github.com/guildboard/guildboard/internal/shared"
)

// ErrInvalidSetting marks a settings update rejected before it reaches
// the database.
var ErrInvalidSetting = errors.New("guilds: invalid setting")

// Directory lists the guilds visible to a bearer token.
type Directory interface {
	UserGuilds(ctx context.Context, bearerToken string) ([]discord.Guild, error)
}

// Service wraps guild install state and settings.
type Service struct {
	repo      Repository
	directory Directory
	audit     *shared.AuditLogger
	logger    *slog.Logger
}

// NewService constructs a Service. audit may be nil in tests.
func NewService(repo Repository, directory Directory, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: directory, audit: audit, logger: logger}
}

// IsInstalled reports whether the bot is currently installed in a guild.
func (s *Service) IsInstalled(ctx context.Context, guildID string) (bool, error) {
	return s.repo.IsInstalled(ctx, guildID)
}

// MarkInstalled records a bot install, reviving a previously
// uninstalled row.
func (s *Service) MarkInstalled(ctx context.Context, guild Guild) error {
	if err := s.repo.MarkInstalled(ctx, guild); err != nil {
		return err
	}
	s.recordAudit(ctx, "system:bot", "guild.install", guild.ID, map[string]any{"owner_id": guild.OwnerID})
	return nil
}

// MarkUninstalled records a bot removal. Dependent rows are swept later
// by the cleanup job, not here.
func (s *Service) MarkUninstalled(ctx context.Context, guildID string) error {
	if err := s.repo.MarkUninstalled(ctx, guildID); err != nil {
		return err
	}
	s.recordAudit(ctx, "system:bot", "guild.uninstall", guildID, nil)
	return nil
}

// MyGuilds merges the caller's Discord guilds with local install state,
// preserving the order the provider returned.
func (s *Service) MyGuilds(ctx context.Context, bearerToken string) ([]Summary, error) {
	memberships, err := s.directory.UserGuilds(ctx, bearerToken)
	if err != nil {
		return nil, fmt.Errorf("guilds: list memberships: %w", err)
	}

	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ID)
	}
	installed, err := s.repo.InstalledSet(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(memberships))
	for _, m := range memberships {
		summaries = append(summaries, Summary{
			ID:        m.ID,
			Name:      m.Name,
			IconHash:  m.Icon,
			Owner:     m.Owner,
			Installed: installed[m.ID],
		})
	}
	return summaries, nil
}

// GetSettings returns the stored settings, falling back to defaults for
// guilds nobody has configured yet.
func (s *Service) GetSettings(ctx context.Context, guildID string) (Settings, error) {
	settings, err := s.repo.GetSettings(ctx, guildID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return DefaultSettings(guildID), nil
		}
		return Settings{}, err
	}
	return settings, nil
}

// UpdateSettings validates and stores a settings update. The locale is
// canonicalised to its BCP 47 form, so "EN_us" is stored as "en-US".
func (s *Service) UpdateSettings(ctx context.Context, guildID, actorID string, req UpdateSettingsRequest) (Settings, error) {
	locale := DefaultSettings(guildID).Locale
	if req.Locale != "" {
		tag, err := language.Parse(req.Locale)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: locale %q", ErrInvalidSetting, req.Locale)
		}
		locale = tag.String()
	}

	timezone := DefaultSettings(guildID).Timezone
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return Settings{}, fmt.Errorf("%w: timezone %q", ErrInvalidSetting, req.Timezone)
		}
		timezone = req.Timezone
	}

	settings := Settings{
		GuildID:         guildID,
		Prefix:          req.Prefix,
		Locale:          locale,
		Timezone:        timezone,
		ModLogChannelID: req.ModLogChannelID,
		WelcomeEnabled:  req.WelcomeEnabled,
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return Settings{}, err
	}
	s.recordAudit(ctx, actorID, "guild.settings.update", guildID, map[string]any{
		"prefix": settings.Prefix,
		"locale": settings.Locale,
	})
	return settings, nil
}

// ListUninstalled returns guild IDs the bot has left, for cleanup.
func (s *Service) ListUninstalled(ctx context.Context) ([]string, error) {
	return s.repo.ListUninstalled(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, guildID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "guild",
		EntityID: guildID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("guilds: audit record failed",
			slog.String("action", action),
			slog.String("guild_id", guildID),
			slog.Any("error", err),
		)
	}
}
