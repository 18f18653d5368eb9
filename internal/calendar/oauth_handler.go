package calendar

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/odontoapp/turnos-api/pkg/logging"
)

const stateCookie = "gcal_oauth_state"

// OAuthHandler exposes the one-time Google connection flow for the practice
// account. Token refresh afterwards is entirely the Provider's business.
type OAuthHandler struct {
	provider   *Provider
	successURL string
	logger     *logging.Logger
}

func NewOAuthHandler(provider *Provider, successURL string, logger *logging.Logger) *OAuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &OAuthHandler{provider: provider, successURL: successURL, logger: logger}
}

// AuthURL handles GET /oauth/google/url.
func (h *OAuthHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(10 * time.Minute / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"auth_url": h.provider.AuthURL(state),
	})
}

// Callback handles GET /oauth/google/callback.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.logger.Warn("google oauth denied", "error", errMsg)
		http.Error(w, "authorization denied", http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	if err := h.provider.Exchange(r.Context(), code); err != nil {
		h.logger.Error("google oauth exchange failed", "error", err)
		http.Error(w, "failed to connect google calendar", http.StatusBadGateway)
		return
	}

	if h.successURL != "" {
		http.Redirect(w, r, h.successURL, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"connected": true})
}
