// Package practice stores the dental practice's public profile: name,
// contact channels and the hours text shown to patients. One practice per
// deployment; the working grid itself lives in configuration, not here.
package practice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "practice:settings"

// Settings is the editable practice profile.
type Settings struct {
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	WhatsApp      string `json:"whatsapp,omitempty"`
	Email         string `json:"email,omitempty"`
	HoursText     string `json:"hours_text"`
	WelcomeText   string `json:"welcome_text,omitempty"`
	CancelledText string `json:"cancelled_text,omitempty"`
}

// DefaultSettings returns the profile used before an admin edits anything.
func DefaultSettings() *Settings {
	return &Settings{
		Name:      "Consultorio Odontológico",
		HoursText: "Lunes a viernes de 12:00 a 20:00",
	}
}

// Store provides persistence for the practice profile.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new practice settings store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// Get retrieves the profile, returning defaults when nothing is stored.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if err == redis.Nil {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("practice: get settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("practice: unmarshal settings: %w", err)
	}
	return &settings, nil
}

// Set saves the profile.
func (s *Store) Set(ctx context.Context, settings *Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("practice: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("practice: set settings: %w", err)
	}
	return nil
}
