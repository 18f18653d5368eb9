package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/odontoapp/turnos-api/internal/api/router"
	"github.com/odontoapp/turnos-api/internal/appointments"
	"github.com/odontoapp/turnos-api/internal/calendar"
	"github.com/odontoapp/turnos-api/internal/clock"
	appconfig "github.com/odontoapp/turnos-api/internal/config"
	"github.com/odontoapp/turnos-api/internal/observability/metrics"
	"github.com/odontoapp/turnos-api/internal/practice"
	"github.com/odontoapp/turnos-api/internal/reconcile"
	"github.com/odontoapp/turnos-api/internal/users"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting turnos API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.Timezone,
	)

	clk, err := clock.New(cfg.Timezone)
	if err != nil {
		logger.Error("invalid business timezone", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	bookingMetrics := metrics.NewBookingMetrics(nil)

	// Google Calendar credential provider.
	tokenStore := calendar.NewTokenStore(pool)
	provider := calendar.NewProvider(calendar.ProviderConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		CalendarID:   cfg.GoogleCalendarID,
		Timezone:     cfg.Timezone,
		Store:        tokenStore,
		Logger:       logger,
	})

	// Domain services.
	schedule := appointments.Schedule{
		StartHour:  cfg.WorkStartHour,
		EndHour:    cfg.WorkEndHour,
		WindowDays: cfg.BookingWindowDays,
	}
	apptRepo := appointments.NewPostgresRepository(pool)
	userRepo := users.NewPostgresRepository(pool)
	engine := appointments.NewAvailabilityEngine(apptRepo, provider, clk, schedule, logger)
	booking := appointments.NewBookingService(appointments.BookingServiceConfig{
		Repo:              apptRepo,
		Users:             userRepo,
		Provider:          provider,
		Clock:             clk,
		Schedule:          schedule,
		CancelCutoffHours: cfg.CancelCutoffHours,
		Logger:            logger,
		Metrics:           bookingMetrics,
	})

	// Reconciliation sweep.
	sweeper := reconcile.NewSweeper(reconcile.SweeperConfig{
		Repo:       apptRepo,
		Provider:   provider,
		Clock:      clk,
		WindowDays: cfg.BookingWindowDays,
		Logger:     logger,
		Metrics:    bookingMetrics,
	})
	sweepService, err := reconcile.NewService(reconcile.ServiceConfig{
		Sweeper:  sweeper,
		Interval: cfg.SyncInterval,
		Debounce: cfg.WebhookDebounce,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create reconcile service", "error", err)
		os.Exit(1)
	}
	go sweepService.Start(ctx)

	// Practice profile store. Optional: without redis the admin profile
	// endpoints are simply not mounted.
	var practiceHandler *practice.Handler
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = redisClient.Close() }()
		practiceHandler = practice.NewHandler(practice.NewStore(redisClient), logger)
	}

	webhookURL := ""
	if cfg.PublicBaseURL != "" {
		webhookURL = cfg.PublicBaseURL + "/webhooks/calendar"
	}

	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(engine, booking, logger),
		ReconcileHandler:    reconcile.NewHandler(sweepService, provider, webhookURL, logger, bookingMetrics),
		PracticeHandler:     practiceHandler,
		OAuthHandler:        calendar.NewOAuthHandler(provider, cfg.PublicBaseURL, logger),
		MetricsHandler:      promhttp.Handler(),
		UserJWTSecret:       cfg.UserJWTSecret,
		AdminJWTSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		BookingRatePerSec:   cfg.BookingRatePerSec,
		BookingBurst:        cfg.BookingRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
