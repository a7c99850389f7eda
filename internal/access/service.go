package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guildboard/guildboard/internal/shared"
)

// Service wraps the administrative grant and role flows. Resolution
// itself lives on Resolver; these are the write paths around it.
type Service struct {
	repo   Repository
	cache  *Cache
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a Service. audit may be nil in tests.
func NewService(repo Repository, cache *Cache, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// ListGrants returns every grant row for the guild, revoked ones included.
func (s *Service) ListGrants(ctx context.Context, guildID string) ([]Grant, error) {
	return s.repo.ListGrants(ctx, guildID)
}

// CreateGrant issues or refreshes an explicit grant and drops the pair's
// cached decision so this process honours it immediately.
func (s *Service) CreateGrant(ctx context.Context, guildID, userID, grantedBy, notes string) (Grant, error) {
	grant := Grant{
		GuildID:   guildID,
		UserID:    userID,
		HasAccess: true,
		GrantedBy: grantedBy,
		Notes:     notes,
	}
	if err := s.repo.UpsertGrant(ctx, grant); err != nil {
		return Grant{}, fmt.Errorf("create grant: %w", err)
	}
	s.cache.Forget(guildID, userID)
	s.recordAudit(ctx, grantedBy, "access.grant.create", guildID, map[string]any{"user_id": userID})
	return grant, nil
}

// RevokeGrant flips the grant to has_access=false, keeping the row for
// audit. Cached access for the pair survives at most the cache TTL on
// other instances; locally it is dropped now.
func (s *Service) RevokeGrant(ctx context.Context, guildID, userID, revokedBy, note string) error {
	if err := s.repo.RevokeGrant(ctx, guildID, userID, revokedBy, note); err != nil {
		return err
	}
	s.cache.Forget(guildID, userID)
	s.recordAudit(ctx, revokedBy, "access.grant.revoke", guildID, map[string]any{"user_id": userID})
	return nil
}

// EnsureFirstAccessGrant records a system grant for the user who caused
// the bot to be installed, unless any grant row already exists. This is
// what keeps the installer's access alive through role changes and
// provider outages.
func (s *Service) EnsureFirstAccessGrant(ctx context.Context, guildID, userID string) error {
	_, err := s.repo.FindGrant(ctx, guildID, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.repo.UpsertGrant(ctx, Grant{
		GuildID:   guildID,
		UserID:    userID,
		HasAccess: true,
		GrantedBy: GrantedBySystem,
		Notes:     "granted on first access",
	}); err != nil {
		return fmt.Errorf("first access grant: %w", err)
	}
	s.cache.Forget(guildID, userID)
	s.recordAudit(ctx, GrantedBySystem, "access.grant.first-access", guildID, map[string]any{"user_id": userID})
	return nil
}

// ListAllowedRoles returns the role IDs eligible for dashboard access.
func (s *Service) ListAllowedRoles(ctx context.Context, guildID string) ([]string, error) {
	return s.repo.ListAllowedRoles(ctx, guildID)
}

// AllowRole marks a Discord role as granting dashboard access. Users
// holding it gain access as their cached decisions expire.
func (s *Service) AllowRole(ctx context.Context, guildID, roleID, actorID string) error {
	if err := s.repo.AllowRole(ctx, guildID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "access.role.allow", guildID, map[string]any{"role_id": roleID})
	return nil
}

// DisallowRole removes a role's eligibility. Cached positive decisions
// for holders of the role persist until TTL expiry; operators accept
// that window.
func (s *Service) DisallowRole(ctx context.Context, guildID, roleID, actorID string) error {
	if err := s.repo.DisallowRole(ctx, guildID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "access.role.disallow", guildID, map[string]any{"role_id": roleID})
	return nil
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
		s.logger.Warn("access: audit record failed",
			slog.String("action", action),
			slog.String("guild_id", guildID),
			slog.Any("error", err),
		)
	}
}
