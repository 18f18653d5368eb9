package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Timezone != "America/Argentina/Buenos_Aires" {
		t.Errorf("unexpected default timezone: %s", cfg.Timezone)
	}
	if cfg.WorkStartHour != 12 || cfg.WorkEndHour != 20 {
		t.Errorf("unexpected default work hours: %d-%d", cfg.WorkStartHour, cfg.WorkEndHour)
	}
	if cfg.BookingWindowDays != 30 {
		t.Errorf("expected 30 day booking window, got %d", cfg.BookingWindowDays)
	}
	if cfg.CancelCutoffHours != 24 {
		t.Errorf("expected 24h cancel cutoff, got %d", cfg.CancelCutoffHours)
	}
	if cfg.WebhookDebounce != 2*time.Second {
		t.Errorf("expected 2s webhook debounce, got %s", cfg.WebhookDebounce)
	}
	if cfg.GoogleCalendarID != "primary" {
		t.Errorf("expected primary calendar, got %s", cfg.GoogleCalendarID)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORK_START_HOUR", "9")
	t.Setenv("SYNC_INTERVAL", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	if cfg.WorkStartHour != 9 {
		t.Errorf("expected WORK_START_HOUR override, got %d", cfg.WorkStartHour)
	}
	if cfg.SyncInterval != 15*time.Minute {
		t.Errorf("expected 15m sync interval, got %s", cfg.SyncInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}
