package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guildboard/guildboard/internal/shared"
)

type decisionContextKey struct{}

// ContextWithDecision stores a resolved decision in the context.
func ContextWithDecision(ctx context.Context, decision Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, decision)
}

// DecisionFromContext returns the decision placed by the guard, if any.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	decision, ok := ctx.Value(decisionContextKey{}).(Decision)
	return decision, ok
}

// Middleware guards guild-scoped routes behind the resolver.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequireGuildAccess resolves the session user against the {guildID}
// route parameter. Every failure mode converges to 403: the response
// never distinguishes "you lack permission" from "we could not verify".
func (m Middleware) RequireGuildAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guildID := chi.URLParam(r, "guildID")
		if guildID == "" {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}

		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		decision, err := m.Resolver.Resolve(r.Context(), guildID, sess.User(), sess.UserToken())
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("access: resolution failed, denying",
					slog.String("guild_id", guildID),
					slog.String("user_id", sess.User()),
					slog.Any("error", err),
				)
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		if !decision.CanUseApp {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithDecision(r.Context(), decision)))
	})
}
