package guilds

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/guildboard/guildboard/internal/discord"
	"github.com/guildboard/guildboard/internal/platform/httpx"
	"github.com/guildboard/guildboard/internal/shared"
)

// Handler exposes the guild listing and settings endpoints.
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

// MountUserRoutes attaches routes that only need an authenticated
// session, not guild access.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/", h.MyGuilds)
}

// MountGuildRoutes attaches routes mounted under /guilds/{guildID}
// behind the access guard.
func (h *Handler) MountGuildRoutes(r chi.Router) {
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
}

// MyGuilds lists the caller's Discord guilds annotated with install
// state. The bearer token lives in the session, so an expired or
// anonymous session yields 401.
func (h *Handler) MyGuilds(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" || sess.UserToken() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	summaries, err := h.service.MyGuilds(r.Context(), sess.UserToken())
	if err != nil {
		h.logger.Error("list my guilds", slog.String("user_id", sess.User()), slog.Any("error", err))
		if errors.Is(err, discord.ErrUnavailable) {
			httpx.Problem(w, http.StatusBadGateway, "Upstream Unavailable", "")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, GuildListResponse{Guilds: summaries, Total: len(summaries)})
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	settings, err := h.service.GetSettings(r.Context(), guildID)
	if err != nil {
		h.logger.Error("get settings", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req UpdateSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), guildID, h.currentUser(r), req)
	if err != nil {
		if errors.Is(err, ErrInvalidSetting) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("update settings", slog.String("guild_id", guildID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) currentUser(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.User()
	}
	return ""
}
