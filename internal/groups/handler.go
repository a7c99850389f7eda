package groups

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/guildboard/guildboard/internal/platform/httpx"
	"github.com/guildboard/guildboard/internal/shared"
)

// Handler exposes the server group endpoints. All routes require an
// authenticated session.
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

// MountRoutes attaches the group routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{groupID}", h.Get)
	r.Patch("/{groupID}", h.Rename)
	r.Delete("/{groupID}", h.Delete)
	r.Put("/{groupID}/guilds/{guildID}", h.AddGuild)
	r.Delete("/{groupID}/guilds/{guildID}", h.RemoveGuild)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	groups, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("list groups", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if groups == nil {
		groups = []Group{}
	}
	httpx.JSON(w, http.StatusOK, GroupListResponse{Groups: groups, Total: len(groups)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	group, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		h.logger.Error("create group", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, group)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := h.groupID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	group, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.respondServiceError(w, "get group", userID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := h.groupID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	var req RenameGroupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	if err := h.service.Rename(r.Context(), userID, id, req.Name); err != nil {
		h.respondServiceError(w, "rename group", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := h.groupID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.respondServiceError(w, "delete group", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddGuild(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := h.groupID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	if err := h.service.AddGuild(r.Context(), userID, id, chi.URLParam(r, "guildID")); err != nil {
		h.respondServiceError(w, "add group guild", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveGuild(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := h.groupID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	if err := h.service.RemoveGuild(r.Context(), userID, id, chi.URLParam(r, "guildID")); err != nil {
		h.respondServiceError(w, "remove group guild", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return "", false
	}
	return sess.User(), true
}

func (h *Handler) groupID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "groupID"))
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op, userID string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error(op, slog.String("user_id", userID), slog.Any("error", err))
	httpx.RespondError(w, err)
}
