package access_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/guildboard/guildboard/internal/access"
	"github.com/guildboard/guildboard/internal/discord"
	"github.com/guildboard/guildboard/internal/shared"
)

func newGuardedRouter(t *testing.T, resolver *access.Resolver, userID string) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)

	guard := access.Middleware{Resolver: resolver, Logger: slog.Default()}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			if userID != "" {
				sess.SetUser(userID)
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/guilds/{guildID}", func(r chi.Router) {
		r.Use(guard.RequireGuildAccess)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			if _, ok := access.DecisionFromContext(req.Context()); !ok {
				t.Error("decision missing from context")
			}
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestRequireGuildAccessAllows(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberRoles: []string{"mod"}}
	router := newGuardedRouter(t, newResolver(repo, dir, time.Minute), "U1")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/guilds/G1/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestRequireGuildAccessDenies(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberRoles: []string{"member"}}
	router := newGuardedRouter(t, newResolver(repo, dir, time.Minute), "U1")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/guilds/G1/", nil))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestRequireGuildAccessDeniesOnStoreError(t *testing.T) {
	repo := &stubRepo{grantErr: context.DeadlineExceeded}
	router := newGuardedRouter(t, newResolver(repo, &stubDirectory{}, time.Minute), "U1")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/guilds/G1/", nil))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on store failure, got %d", res.Code)
	}
	if body := res.Body.String(); body != http.StatusText(http.StatusForbidden)+"\n" {
		t.Fatalf("expected an opaque body, got %q", body)
	}
}

func TestRequireGuildAccessDeniesOnDirectoryOutage(t *testing.T) {
	repo := &stubRepo{roles: []string{"mod"}}
	dir := &stubDirectory{memberErr: discord.ErrUnavailable}
	router := newGuardedRouter(t, newResolver(repo, dir, time.Minute), "U1")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/guilds/G1/", nil))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestRequireGuildAccessUnauthenticated(t *testing.T) {
	router := newGuardedRouter(t, newResolver(&stubRepo{}, &stubDirectory{}, time.Minute), "")

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/guilds/G1/", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}
