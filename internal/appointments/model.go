package appointments

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ServiceDuration is the fixed length of every consultation. One calendar
// slot equals one service.
const ServiceDuration = time.Hour

// Status is the appointment lifecycle state.
type Status string

const (
	// StatusConfirmed means the slot is held in both systems.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled is terminal: user, admin or sweep cancellation.
	StatusCancelled Status = "cancelled"
	// StatusCompleted is terminal: the appointment's end has passed.
	StatusCompleted Status = "completed"
)

// Appointment is the local booking record. external_event_id joins it to the
// mirrored calendar event; it is set iff the event creation succeeded.
type Appointment struct {
	ID               string    `json:"id"`
	SubjectID        string    `json:"subject_id"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	Status           Status    `json:"status"`
	ConsultationKind string    `json:"consultation_kind"`
	Notes            string    `json:"notes,omitempty"`
	ExternalEventID  string    `json:"external_event_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateRequest is the booking payload. Hour uses the "HH:00" wire format.
type CreateRequest struct {
	Date             string `json:"date"`
	Hour             string `json:"hour"`
	ConsultationKind string `json:"consultation_kind"`
	Notes            string `json:"notes"`
}

// parseHour extracts the whole hour from "HH:00"/"HH" input. ok is false for
// anything not on the hourly grid.
func parseHour(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if h, m, found := strings.Cut(s, ":"); found {
		if m != "00" {
			return 0, false
		}
		s = h
	}
	hour, err := strconv.Atoi(s)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// formatHour renders a whole hour as "HH:00".
func formatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}
