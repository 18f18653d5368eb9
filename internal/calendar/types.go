// Package calendar integrates with the practice's Google Calendar. The
// calendar is one of the two sources of truth for slot occupancy; the other
// is the local appointment store.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConnected is returned when no usable Google credential is stored.
var ErrNotConnected = errors.New("calendar: google account not connected")

// Event is a calendar entry. It may or may not correspond to a local
// appointment; the practitioner's personal entries legitimately occupy slots.
type Event struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Overlaps reports whether the event intersects the half-open interval
// [start, end).
func (e Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// EventDraft is the payload for creating an event.
type EventDraft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// WatchInfo describes a registered push-notification channel.
type WatchInfo struct {
	ChannelID  string    `json:"channel_id"`
	ResourceID string    `json:"resource_id"`
	Expiration time.Time `json:"expiration"`
}

// EventAPI is the narrow calendar surface the booking engine and the
// reconciliation sweep consume.
type EventAPI interface {
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, draft EventDraft) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// APIError carries the HTTP status of a failed Google Calendar call so
// callers can distinguish conflicts and credential problems from transport
// failures.
type APIError struct {
	Op     string
	Status int
	Err    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar: %s: status %d: %v", e.Op, e.Status, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsConflict reports whether err is a calendar-side duplicate/conflict.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 409
}

// IsAuthError reports whether err indicates an expired or revoked credential.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403)
}
