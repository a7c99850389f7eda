package access_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildboard/guildboard/internal/access"
	"github.com/guildboard/guildboard/internal/discord"
	_ "github.com/guildboard/guildboard/testing"
)

type stubRepo struct {
	grant     *access.Grant
	grantErr  error
	roles     []string
	rolesErr  error
	grantHits int
	roleHits  int
	upserts   []access.Grant
	revoked   []string
}

func (s *stubRepo) FindGrant(ctx context.Context, guildID, userID string) (*access.Grant, error) {
	s.grantHits++
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	if s.grant == nil {
		return nil, access.ErrNotFound
	}
	return s.grant, nil
}

func (s *stubRepo) ListAllowedRoles(ctx context.Context, guildID string) ([]string, error) {
	s.roleHits++
	return s.roles, s.rolesErr
}

func (s *stubRepo) UpsertGrant(ctx context.Context, grant access.Grant) error {
	s.upserts = append(s.upserts, grant)
	return nil
}

func (s *stubRepo) RevokeGrant(ctx context.Context, guildID, userID, revokedBy, note string) error {
	if s.grant == nil {
		return access.ErrNotFound
	}
	s.revoked = append(s.revoked, userID)
	s.grant.HasAccess = false
	return nil
}
func (s *stubRepo) ListGrants(ctx context.Context, guildID string) ([]access.Grant, error) {
	return nil, nil
}
func (s *stubRepo) AllowRole(ctx context.Context, guildID, roleID string) error    { return nil }
func (s *stubRepo) DisallowRole(ctx context.Context, guildID, roleID string) error { return nil }
func (s *stubRepo) DeleteGuildRoles(ctx context.Context, guildID string) (int64, error) {
	return 0, nil
}

type stubDirectory struct {
	memberRoles []string
	memberErr   error
	guilds      []discord.Guild
	guildsErr   error
	memberHits  int
	guildHits   int
}

func (s *stubDirectory) GuildMemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	s.memberHits++
	return s.memberRoles, s.memberErr
}

func (s *stubDirectory) UserGuilds(ctx context.Context, bearerToken string) ([]discord.Guild, error) {
	s.guildHits++
	return s.guilds, s.guildsErr
}

func newResolver(repo *stubRepo, dir *stubDirectory, ttl time.Duration) *access.Resolver {
	return access.NewResolver(repo, dir, access.NewCache(64, ttl), slog.Default(), nil)
}

func TestResolveExplicitGrantBypassesDirectory(t *testing.T) {
	repo := &stubRepo{grant: &access.Grant{GuildID: "G1", UserID: "U1", HasAccess: true}}
	dir := &stubDirectory{memberErr: discord.ErrUnavailable, guildsErr: discord.ErrUnavailable}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "token")
	require.NoError(t, err)
	assert.True(t, decision.CanUseApp)
	assert.False(t, decision.IsOwner)
	assert.False(t, decision.HasRoleAccess)
	assert.Zero(t, dir.memberHits, "grant must short-circuit the role check")
	assert.Zero(t, dir.guildHits, "grant must short-circuit the ownership check")
}

func TestResolveRevokedGrantDoesNotAllow(t *testing.T) {
	repo := &stubRepo{grant: &access.Grant{GuildID: "G1", UserID: "U1", HasAccess: false}}
	dir := &stubDirectory{memberRoles: []string{}}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.False(t, decision.CanUseApp)
}

func TestResolveOwnerFastPath(t *testing.T) {
	repo := &stubRepo{}
	dir := &stubDirectory{guilds: []discord.Guild{{ID: "G1", Owner: true}}}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "token")
	require.NoError(t, err)
	assert.True(t, decision.CanUseApp)
	assert.True(t, decision.IsOwner)
	assert.Zero(t, dir.memberHits, "ownership must short-circuit the role check")
}

func TestResolveOwnershipFailureFallsThroughToRoles(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{guildsErr: discord.ErrUnavailable, memberRoles: []string{"mod"}}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "token")
	require.NoError(t, err)
	assert.True(t, decision.CanUseApp)
	assert.False(t, decision.IsOwner)
	assert.True(t, decision.HasRoleAccess)
}

func TestResolveRoleIntersection(t *testing.T) {
	cases := []struct {
		name      string
		allowed   []string
		held      []string
		wantAllow bool
	}{
		{"overlap", []string{"A", "B"}, []string{"B", "C"}, true},
		{"disjoint", []string{"A", "B"}, []string{"C", "D"}, false},
		{"no roles held", []string{"A"}, []string{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubRepo{roles: tc.allowed}
			dir := &stubDirectory{memberRoles: tc.held}
			resolver := newResolver(repo, dir, time.Minute)

			decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
			require.NoError(t, err)
			assert.Equal(t, tc.wantAllow, decision.CanUseApp)
			assert.Equal(t, tc.wantAllow, decision.HasRoleAccess)
			assert.ElementsMatch(t, tc.held, decision.UserRoles)
		})
	}
}

func TestResolveEmptyConfigurationDenies(t *testing.T) {
	repo := &stubRepo{roles: nil}
	dir := &stubDirectory{memberRoles: []string{"mod", "admin"}}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.False(t, decision.CanUseApp)
	assert.Zero(t, dir.memberHits, "no configured roles means no directory lookup")
}

func TestResolveFailSecureOnDirectoryOutage(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberErr: discord.ErrUnavailable}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err, "a directory outage is a decision, not a resolver error")
	assert.False(t, decision.CanUseApp)
}

func TestResolveDirectoryNotFoundDenies(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberErr: discord.ErrNotFound}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.False(t, decision.CanUseApp)
	assert.Empty(t, decision.UserRoles)
}

func TestResolveStoreUnavailableFailsTheCall(t *testing.T) {
	repo := &stubRepo{grantErr: errors.New("connection refused")}
	resolver := newResolver(repo, &stubDirectory{}, time.Minute)

	_, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	assert.ErrorIs(t, err, access.ErrUnavailable)
}

func TestResolveAllowedRolesStoreErrorFailsTheCall(t *testing.T) {
	repo := &stubRepo{rolesErr: errors.New("connection refused")}
	resolver := newResolver(repo, &stubDirectory{}, time.Minute)

	_, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	assert.ErrorIs(t, err, access.ErrUnavailable)
}

func TestResolveCachesAndIsIdempotent(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberRoles: []string{"mod"}}
	resolver := newResolver(repo, dir, time.Minute)

	first, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.grantHits, "second call must come from cache")
	assert.Equal(t, 1, dir.memberHits)
}

func TestResolveCacheTTLExpiry(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberRoles: []string{"other"}}
	resolver := newResolver(repo, dir, 40*time.Millisecond)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.False(t, decision.CanUseApp)

	// Underlying state changes; the cached deny keeps being served
	// until the TTL passes.
	dir.memberRoles = []string{"mod"}
	decision, err = resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.False(t, decision.CanUseApp)

	time.Sleep(60 * time.Millisecond)
	decision, err = resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.True(t, decision.CanUseApp, "expired entry must be recomputed")
}

func TestResolveOutageDenyIsNotCached(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberErr: discord.ErrUnavailable}
	resolver := newResolver(repo, dir, time.Hour)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.False(t, decision.CanUseApp)

	// Directory recovers; the next attempt must re-check immediately
	// rather than serve the outage-shaped deny for a full TTL.
	dir.memberErr = nil
	dir.memberRoles = []string{"mod"}
	decision, err = resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.True(t, decision.CanUseApp)
}

func TestResolveGrantSurvivesProviderTimeout(t *testing.T) {
	repo := &stubRepo{grant: &access.Grant{GuildID: "G1", UserID: "U1", HasAccess: true}}
	dir := &stubDirectory{memberErr: discord.ErrUnavailable, guildsErr: discord.ErrUnavailable}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "token")
	require.NoError(t, err)
	assert.True(t, decision.CanUseApp)
}

func TestResolveModeratorScenario(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberRoles: []string{"mod", "member"}}
	resolver := newResolver(repo, dir, time.Minute)

	decision, err := resolver.Resolve(context.Background(), "G1", "U1", "")
	require.NoError(t, err)
	assert.True(t, decision.CanUseApp)
	assert.True(t, decision.HasRoleAccess)
	assert.False(t, decision.IsOwner)
	assert.Equal(t, "U1", decision.UserID)
	assert.ElementsMatch(t, []string{"mod", "member"}, decision.UserRoles)
}
