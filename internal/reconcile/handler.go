package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/odontoapp/turnos-api/internal/calendar"
	"github.com/odontoapp/turnos-api/internal/observability/metrics"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

const watchTTL = 7 * 24 * time.Hour

// ChannelRegistrar registers a push-notification channel on the calendar.
type ChannelRegistrar interface {
	Watch(ctx context.Context, address string, ttl time.Duration) (*calendar.WatchInfo, error)
}

// Handler exposes the reconciliation admin endpoints and the calendar
// webhook.
type Handler struct {
	service    *Service
	registrar  ChannelRegistrar
	webhookURL string
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
}

// NewHandler creates a new reconcile handler. registrar may be nil when push
// channels are not configured; the watch endpoint then reports 503.
func NewHandler(service *Service, registrar ChannelRegistrar, webhookURL string, logger *logging.Logger, m *metrics.BookingMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:    service,
		registrar:  registrar,
		webhookURL: webhookURL,
		logger:     logger,
		metrics:    m,
	}
}

// Reconcile handles POST /admin/reconcile requests: one synchronous sweep.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, calendar.ErrNotConnected) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "google calendar not connected"})
			return
		}
		h.logger.Error("manual sweep failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "sweep failed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Watch handles POST /admin/calendar/watch requests.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	if h.registrar == nil || h.webhookURL == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "webhook address not configured"})
		return
	}
	info, err := h.registrar.Watch(r.Context(), h.webhookURL, watchTTL)
	if err != nil {
		if errors.Is(err, calendar.ErrNotConnected) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "google calendar not connected"})
			return
		}
		h.logger.Error("watch registration failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "watch registration failed"})
		return
	}
	h.logger.Info("calendar watch registered",
		"channel_id", info.ChannelID,
		"expiration", info.Expiration.Format(time.RFC3339),
	)
	writeJSON(w, http.StatusOK, info)
}

// Webhook handles POST /webhooks/calendar push notifications from Google.
// Google sends no payload body; the headers identify the channel and state.
// Responses must be fast or Google retries, so the sweep itself runs
// debounced in the background.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	state := r.Header.Get("X-Goog-Resource-State")
	h.metrics.ObserveWebhook(state)

	// The initial "sync" message only confirms the channel.
	if state == "sync" {
		h.logger.Info("calendar watch channel confirmed",
			"channel_id", r.Header.Get("X-Goog-Channel-ID"),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Debug("calendar change notification",
		"state", state,
		"channel_id", r.Header.Get("X-Goog-Channel-ID"),
		"resource_id", r.Header.Get("X-Goog-Resource-ID"),
	)
	h.service.TriggerDebounced()
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
