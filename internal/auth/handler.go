package auth

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guildboard/guildboard/internal/platform/httpx"
	"github.com/guildboard/guildboard/internal/shared"
)

const stateSessionKey = "oauth_state"

var timeNow = time.Now

// Handler exposes the Discord OAuth login endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, sessionManager *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessionManager,
	}
}

// MountRoutes attaches the auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.Login)
	r.Get("/callback", h.Callback)
	r.Post("/logout", h.Logout)
}

// Login sends the browser to the Discord consent screen.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	state := generateState()
	sess.Set(stateSessionKey, state)
	http.Redirect(w, r, h.service.LoginURL(state), http.StatusSeeOther)
}

// Callback finishes the authorization-code flow.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	state := r.URL.Query().Get("state")
	expected := sess.Get(stateSessionKey)
	if state == "" || expected == "" || state != expected {
		h.logger.Warn("oauth state mismatch")
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	sess.Delete(stateSessionKey)

	code := r.URL.Query().Get("code")
	if code == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	user, token, err := h.service.CompleteLogin(r.Context(), code)
	if err != nil {
		h.logger.Error("complete login", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	sess.SetUser(user.ID)
	sess.SetUserToken(token)

	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, timeNow().Add(h.sessionManager.TTL()), clientIP(r), r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Signed in as " + user.Username})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.ID != "" {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func generateState() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
