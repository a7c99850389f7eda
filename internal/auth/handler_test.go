package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/guildboard/guildboard/internal/auth"
	"github.com/guildboard/guildboard/internal/discord"
	"github.com/guildboard/guildboard/internal/shared"
	_ "github.com/guildboard/guildboard/testing"
)

type stubRepo struct {
	users    []auth.User
	sessions []string
	removed  []string
}

func (s *stubRepo) UpsertUser(ctx context.Context, user auth.User) error {
	s.users = append(s.users, user)
	return nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	s.sessions = append(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.removed = append(s.removed, id)
	return nil
}

type stubOAuth struct {
	token string
	err   error
}

func (s *stubOAuth) AuthCodeURL(state string) string {
	return "https://discord.test/oauth2/authorize?state=" + state
}

func (s *stubOAuth) Exchange(ctx context.Context, code string) (string, error) {
	return s.token, s.err
}

type stubIdentity struct {
	user   *discord.User
	guilds []discord.Guild
	err    error
}

func (s *stubIdentity) CurrentUser(ctx context.Context, token string) (*discord.User, error) {
	return s.user, s.err
}

func (s *stubIdentity) UserGuilds(ctx context.Context, token string) ([]discord.Guild, error) {
	return s.guilds, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository, oauth auth.Exchanger, identity auth.Identity) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	service := auth.NewService(repo, oauth, identity, nil, nil, nil, slog.Default())
	return auth.NewHandler(slog.Default(), service, sessionManager), sessionManager
}

func TestLoginRedirectsWithState(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, &stubOAuth{token: "tok"}, &stubIdentity{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.Login(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	location := res.Header().Get("Location")
	state := sess.Get("oauth_state")
	if state == "" {
		t.Fatal("state not stored in session")
	}
	if !strings.Contains(location, state) {
		t.Fatalf("redirect %q missing state %q", location, state)
	}
}

func TestCallbackStateMismatch(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, &stubOAuth{token: "tok"}, &stubIdentity{user: &discord.User{ID: "U1"}})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=wrong", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.Set("oauth_state", "expected")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.Callback(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatal("session must not be authenticated after a state mismatch")
	}
}

func TestCallbackSuccess(t *testing.T) {
	repo := &stubRepo{}
	identity := &stubIdentity{user: &discord.User{ID: "U1", Username: "tester"}}
	handler, sessionManager := newAuthHandler(t, repo, &stubOAuth{token: "bearer-token"}, identity)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=expected", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.Set("oauth_state", "expected")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.Callback(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", res.Code, res.Body.String())
	}
	if sess.User() != "U1" {
		t.Fatalf("expected session user U1, got %q", sess.User())
	}
	if sess.UserToken() != "bearer-token" {
		t.Fatal("bearer token not stored in session")
	}
	if len(repo.users) != 1 || repo.users[0].Username != "tester" {
		t.Fatalf("user not mirrored: %+v", repo.users)
	}
	if len(repo.sessions) != 1 {
		t.Fatal("login session row not recorded")
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{}
	handler, sessionManager := newAuthHandler(t, repo, &stubOAuth{}, &stubIdentity{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("U1")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.Logout(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if len(repo.removed) != 1 {
		t.Fatal("login session row not removed")
	}
}
