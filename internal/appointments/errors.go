package appointments

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when an appointment does not exist or is not
	// owned by the requesting subject.
	ErrNotFound = errors.New("appointment not found")

	// ErrSubjectNotFound is returned when the booking subject does not exist.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrSubjectBlocked is returned when the subject's account is blocked.
	ErrSubjectBlocked = errors.New("subject is blocked")

	// ErrUpstreamUnavailable is returned when no calendar credential is
	// available. An operational/setup problem, not a user error.
	ErrUpstreamUnavailable = errors.New("calendar credential not available")
)

// ValidationError rejects malformed booking input before anything is mutated.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidDateError rejects availability queries for weekends, past days or
// unparseable dates.
type InvalidDateError struct {
	Date   string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Date, e.Reason)
}

// ConflictError means the requested slot is already taken, either by a
// confirmed local appointment or by an external calendar event.
type ConflictError struct {
	Source     string // "local" or "calendar"
	StartAt    time.Time
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s already taken (%s)", e.StartAt.Format("2006-01-02 15:04"), e.Source)
}

// TooLateError rejects cancellations inside the cutoff window. HoursRemaining
// is carried for display.
type TooLateError struct {
	HoursRemaining float64
	MinimumHours   int
}

func (e *TooLateError) Error() string {
	return fmt.Sprintf("cancellation requires %d hours notice, %.1f remaining", e.MinimumHours, e.HoursRemaining)
}

// UpstreamError wraps a calendar API failure that is neither a conflict nor
// a credential problem.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err) }

func (e *UpstreamError) Unwrap() error { return e.Err }
