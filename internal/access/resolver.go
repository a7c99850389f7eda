package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guildboard/guildboard/internal/discord"
	"github.com/guildboard/guildboard/internal/observability"
)

// RoleDirectory is the slice of the Discord client the resolver needs.
type RoleDirectory interface {
	GuildMemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
	UserGuilds(ctx context.Context, bearerToken string) ([]discord.Guild, error)
}

// Resolver computes access decisions. Precedence: cached decision,
// explicit grant, guild ownership, role intersection. Anything that
// cannot be positively verified denies.
type Resolver struct {
	repo      Repository
	directory RoleDirectory
	cache     *Cache
	logger    *slog.Logger
	metrics   *observability.AccessMetrics
	group     singleflight.Group
}

// NewResolver constructs a Resolver. metrics may be nil.
func NewResolver(repo Repository, directory RoleDirectory, cache *Cache, logger *slog.Logger, metrics *observability.AccessMetrics) *Resolver {
	return &Resolver{
		repo:      repo,
		directory: directory,
		cache:     cache,
		logger:    logger,
		metrics:   metrics,
	}
}

// Resolve answers whether userID may administer guildID. callerToken is
// the signed-in caller's own bearer token and is only used for the
// ownership fast path; it may be empty.
//
// A non-nil error means the grant store could not be read and the caller
// must deny. A directory outage is not an error: it resolves to a normal
// negative decision.
func (r *Resolver) Resolve(ctx context.Context, guildID, userID, callerToken string) (Decision, error) {
	if decision, ok := r.cache.Get(guildID, userID); ok {
		r.metrics.CacheEvent("hit")
		return decision, nil
	}
	r.metrics.CacheEvent("miss")

	// Concurrent resolutions for the same pair share one slow path. The
	// provider call is idempotent, so this is purely a volume guard.
	result, err, _ := r.group.Do(cacheKey(guildID, userID), func() (any, error) {
		decision, cacheable, err := r.resolveSlow(ctx, guildID, userID, callerToken)
		if err != nil {
			return Decision{}, err
		}
		if cacheable {
			r.cache.Put(guildID, userID, decision)
		}
		return decision, nil
	})
	if err != nil {
		return Decision{}, err
	}
	return result.(Decision), nil
}

// resolveSlow runs the grant, ownership and role checks in order. The
// cacheable flag is false when the decision was forced by a directory
// outage, so a retry after recovery recomputes immediately instead of
// serving the outage-shaped deny for a full TTL.
func (r *Resolver) resolveSlow(ctx context.Context, guildID, userID, callerToken string) (Decision, bool, error) {
	decision := Decision{
		UserID:     userID,
		UserRoles:  []string{},
		ComputedAt: time.Now().UTC(),
	}

	grant, err := r.repo.FindGrant(ctx, guildID, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("access: grant lookup failed",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return Decision{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if grant != nil && grant.HasAccess {
		decision.CanUseApp = true
		r.metrics.Decision(observability.OutcomeGrant)
		return decision, true, nil
	}

	if r.isOwner(ctx, guildID, userID, callerToken) {
		decision.CanUseApp = true
		decision.IsOwner = true
		r.metrics.Decision(observability.OutcomeOwner)
		return decision, true, nil
	}

	allowedRoles, err := r.repo.ListAllowedRoles(ctx, guildID)
	if err != nil {
		r.logger.Error("access: allowed roles lookup failed",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return Decision{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(allowedRoles) == 0 {
		// No configuration means no role grants access. Nothing to ask
		// the directory about.
		r.metrics.Decision(observability.OutcomeDenied)
		return decision, true, nil
	}

	userRoles, err := r.directory.GuildMemberRoles(ctx, guildID, userID)
	switch {
	case errors.Is(err, discord.ErrNotFound):
		// Not a member: holds no roles, resolves to a plain deny.
		userRoles = nil
	case err != nil:
		// Could not verify current roles; deny without caching so the
		// next attempt re-checks.
		r.logger.Warn("access: role directory unavailable, denying",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.String("step", "role-check"),
			slog.Any("error", err),
		)
		r.metrics.DirectoryFailure()
		r.metrics.Decision(observability.OutcomeFailSecure)
		return decision, false, nil
	}

	decision.UserRoles = append(decision.UserRoles, userRoles...)
	decision.HasRoleAccess = intersects(allowedRoles, userRoles)
	decision.CanUseApp = decision.HasRoleAccess
	if decision.CanUseApp {
		r.metrics.Decision(observability.OutcomeRole)
	} else {
		r.metrics.Decision(observability.OutcomeDenied)
	}
	return decision, true, nil
}

// isOwner checks the caller's own guild list for ownership. Failures are
// skipped, not fatal: ownership is a fast path, never the only path.
func (r *Resolver) isOwner(ctx context.Context, guildID, userID, callerToken string) bool {
	if callerToken == "" {
		return false
	}
	guilds, err := r.directory.UserGuilds(ctx, callerToken)
	if err != nil {
		r.logger.Warn("access: ownership check skipped",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.String("step", "ownership"),
			slog.Any("error", err),
		)
		return false
	}
	for _, guild := range guilds {
		if guild.ID == guildID && guild.Owner {
			return true
		}
	}
	return false
}

func intersects(allowed, held []string) bool {
	if len(allowed) == 0 || len(held) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	for _, id := range held {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
