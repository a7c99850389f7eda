package access

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/guildboard/guildboard/internal/platform/httpx"
	"github.com/guildboard/guildboard/internal/shared"
)

// Handler exposes the grant and allowed-role admin endpoints. All routes
// are mounted under /guilds/{guildID} behind RequireGuildAccess.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes attaches the access admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/access/me", h.Me)
	r.Get("/access/grants", h.ListGrants)
	r.Post("/access/grants", h.CreateGrant)
	r.Delete("/access/grants/{userID}", h.RevokeGrant)
	r.Get("/access/roles", h.ListAllowedRoles)
	r.Put("/access/roles/{roleID}", h.AllowRole)
	r.Delete("/access/roles/{roleID}", h.DisallowRole)
}

// Me returns the decision the guard computed for the current request.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	decision, ok := DecisionFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}

func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	grants, err := h.service.ListGrants(r.Context(), guildID)
	if err != nil {
		h.logger.Error("list grants", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if grants == nil {
		grants = []Grant{}
	}
	httpx.JSON(w, http.StatusOK, GrantListResponse{Grants: grants, Total: len(grants)})
}

func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	var req CreateGrantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	actor := h.currentUser(r)
	grant, err := h.service.CreateGrant(r.Context(), guildID, req.UserID, actor, req.Notes)
	if err != nil {
		h.logger.Error("create grant", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grant)
}

func (h *Handler) RevokeGrant(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	userID := chi.URLParam(r, "userID")

	var req RevokeGrantRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
	}

	err := h.service.RevokeGrant(r.Context(), guildID, userID, h.currentUser(r), req.Note)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("revoke grant", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListAllowedRoles(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	roleIDs, err := h.service.ListAllowedRoles(r.Context(), guildID)
	if err != nil {
		h.logger.Error("list allowed roles", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if roleIDs == nil {
		roleIDs = []string{}
	}
	httpx.JSON(w, http.StatusOK, AllowedRolesResponse{RoleIDs: roleIDs})
}

func (h *Handler) AllowRole(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	roleID := chi.URLParam(r, "roleID")
	if err := h.service.AllowRole(r.Context(), guildID, roleID, h.currentUser(r)); err != nil {
		h.logger.Error("allow role", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DisallowRole(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	roleID := chi.URLParam(r, "roleID")
	err := h.service.DisallowRole(r.Context(), guildID, roleID, h.currentUser(r))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("disallow role", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.User()
	}
	return ""
}
