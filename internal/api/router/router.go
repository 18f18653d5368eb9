// Package router assembles the HTTP surface of the booking API.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/odontoapp/turnos-api/internal/appointments"
	"github.com/odontoapp/turnos-api/internal/calendar"
	httpmiddleware "github.com/odontoapp/turnos-api/internal/http/middleware"
	"github.com/odontoapp/turnos-api/internal/practice"
	"github.com/odontoapp/turnos-api/internal/reconcile"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	ReconcileHandler    *reconcile.Handler
	PracticeHandler     *practice.Handler
	OAuthHandler        *calendar.OAuthHandler
	MetricsHandler      http.Handler

	UserJWTSecret      string
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	BookingRatePerSec float64
	BookingBurst      int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, metrics, OAuth, webhook.
	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.OAuthHandler != nil {
		r.Route("/oauth/google", func(r chi.Router) {
			r.Get("/url", cfg.OAuthHandler.AuthURL)
			r.Get("/callback", cfg.OAuthHandler.Callback)
		})
	}
	if cfg.ReconcileHandler != nil {
		r.Post("/webhooks/calendar", cfg.ReconcileHandler.Webhook)
	}

	// Patient API.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.SubjectJWT(cfg.UserJWTSecret))
		if cfg.BookingRatePerSec > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.BookingRatePerSec, cfg.BookingBurst))
		}
		api.Get("/dates", cfg.AppointmentsHandler.Dates)
		api.Get("/hours", cfg.AppointmentsHandler.Hours)
		api.Get("/appointments", cfg.AppointmentsHandler.List)
		api.Post("/appointments", cfg.AppointmentsHandler.Create)
		api.Delete("/appointments/{id}", cfg.AppointmentsHandler.Cancel)
	})

	// Admin API.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
		if cfg.ReconcileHandler != nil {
			admin.Post("/reconcile", cfg.ReconcileHandler.Reconcile)
			admin.Post("/calendar/watch", cfg.ReconcileHandler.Watch)
		}
		if cfg.PracticeHandler != nil {
			admin.Get("/practice", cfg.PracticeHandler.Get)
			admin.Put("/practice", cfg.PracticeHandler.Update)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
