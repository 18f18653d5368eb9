package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Business schedule
	Timezone          string
	WorkStartHour     int
	WorkEndHour       int
	BookingWindowDays int
	CancelCutoffHours int

	// Google Calendar
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleCalendarID   string

	// Reconciliation
	SyncInterval    time.Duration
	WebhookDebounce time.Duration

	// Auth
	UserJWTSecret  string
	AdminJWTSecret string

	// Redis (practice settings store)
	RedisAddr     string
	RedisPassword string

	// HTTP
	CORSAllowedOrigins []string
	BookingRatePerSec  float64
	BookingRateBurst   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		Timezone:          getEnv("BUSINESS_TIMEZONE", "America/Argentina/Buenos_Aires"),
		WorkStartHour:     getEnvAsInt("WORK_START_HOUR", 12),
		WorkEndHour:       getEnvAsInt("WORK_END_HOUR", 20),
		BookingWindowDays: getEnvAsInt("BOOKING_WINDOW_DAYS", 30),
		CancelCutoffHours: getEnvAsInt("CANCEL_CUTOFF_HOURS", 24),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URI", ""),
		GoogleCalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),

		SyncInterval:    getEnvAsDuration("SYNC_INTERVAL", 0),
		WebhookDebounce: getEnvAsDuration("WEBHOOK_DEBOUNCE", 2*time.Second),

		UserJWTSecret:  getEnv("USER_JWT_SECRET", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
		BookingRatePerSec:  getEnvAsFloat("BOOKING_RATE_PER_SEC", 2),
		BookingRateBurst:   getEnvAsInt("BOOKING_RATE_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
