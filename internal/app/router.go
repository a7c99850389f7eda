package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/guildboard/guildboard/internal/access"
	"github.com/guildboard/guildboard/internal/auth"
	"github.com/guildboard/guildboard/internal/groups"
	"github.com/guildboard/guildboard/internal/guilds"
	"github.com/guildboard/guildboard/internal/observability"
	"github.com/guildboard/guildboard/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler   *auth.Handler
	AccessHandler *access.Handler
	AccessGuard   access.Middleware
	GuildsHandler *guilds.Handler
	GroupsHandler *groups.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", params.AuthHandler.MountRoutes)

	if params.GuildsHandler != nil {
		r.Route("/guilds", func(r chi.Router) {
			params.GuildsHandler.MountUserRoutes(r)

			// Everything guild-scoped sits behind the access guard. A
			// request that cannot be positively resolved never reaches
			// these handlers.
			r.Route("/{guildID}", func(r chi.Router) {
				r.Use(params.AccessGuard.RequireGuildAccess)
				params.GuildsHandler.MountGuildRoutes(r)
				if params.AccessHandler != nil {
					params.AccessHandler.MountRoutes(r)
				}
			})
		})
	}

	if params.GroupsHandler != nil {
		r.Route("/groups", params.GroupsHandler.MountRoutes)
	}

	return r
}
