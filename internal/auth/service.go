package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildboard/guildboard/internal/access"
	"github.com/guildboard/guildboard/internal/discord"
)

// Exchanger trades an authorization code for a bearer token.
type Exchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// Identity is the slice of the Discord client the login flow needs.
type Identity interface {
	CurrentUser(ctx context.Context, bearerToken string) (*discord.User, error)
	UserGuilds(ctx context.Context, bearerToken string) ([]discord.Guild, error)
}

// InstallChecker reports whether the bot is installed in a guild.
type InstallChecker interface {
	IsInstalled(ctx context.Context, guildID string) (bool, error)
}

// BackfillEnqueuer queues a retry for a first-access grant that could
// not be written during login.
type BackfillEnqueuer interface {
	EnqueueGrantBackfill(ctx context.Context, guildID, userID string) error
}

// Service wraps the Discord login flow.
type Service struct {
	repo      Repository
	oauth     Exchanger
	identity  Identity
	installed InstallChecker
	grants    *access.Service
	backfill  BackfillEnqueuer
	logger    *slog.Logger
}

// NewService constructs a Service. installed and grants may be nil, in
// which case first-access grants are skipped; backfill may be nil, in
// which case failed grants are only retried on the next login.
func NewService(repo Repository, oauth Exchanger, identity Identity, installed InstallChecker, grants *access.Service, backfill BackfillEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		oauth:     oauth,
		identity:  identity,
		installed: installed,
		grants:    grants,
		backfill:  backfill,
		logger:    logger,
	}
}

// LoginURL returns the Discord consent URL bound to the given state.
func (s *Service) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// CompleteLogin exchanges the authorization code, mirrors the Discord
// account locally, and returns the user plus their bearer token.
func (s *Service) CompleteLogin(ctx context.Context, code string) (*User, string, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: %w", err)
	}

	identity, err := s.identity.CurrentUser(ctx, token)
	if err != nil {
		return nil, "", fmt.Errorf("auth: fetch identity: %w", err)
	}

	user := User{
		ID:         identity.ID,
		Username:   identity.Username,
		GlobalName: identity.GlobalName,
		AvatarHash: identity.Avatar,
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, "", err
	}

	s.seedFirstAccessGrants(ctx, user.ID, token)

	return &user, token, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, userAgent string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, userAgent)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// seedFirstAccessGrants records a system grant for every installed guild
// the caller owns. Best effort: a login never fails because of it, and a
// provider outage just means the grant appears on a later login.
func (s *Service) seedFirstAccessGrants(ctx context.Context, userID, token string) {
	if s.installed == nil || s.grants == nil {
		return
	}
	guilds, err := s.identity.UserGuilds(ctx, token)
	if err != nil {
		s.logger.Warn("auth: skipping first-access grants", slog.Any("error", err))
		return
	}
	for _, guild := range guilds {
		if !guild.Owner {
			continue
		}
		installed, err := s.installed.IsInstalled(ctx, guild.ID)
		if err != nil || !installed {
			continue
		}
		if err := s.grants.EnsureFirstAccessGrant(ctx, guild.ID, userID); err != nil {
			s.logger.Warn("auth: first-access grant failed",
				slog.String("guild_id", guild.ID),
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			if s.backfill != nil {
				if qerr := s.backfill.EnqueueGrantBackfill(ctx, guild.ID, userID); qerr != nil {
					s.logger.Warn("auth: grant backfill enqueue failed", slog.Any("error", qerr))
				}
			}
		}
	}
}
