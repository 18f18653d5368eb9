package appointments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/odontoapp/turnos-api/internal/calendar"
	"github.com/odontoapp/turnos-api/internal/clock"
	"github.com/odontoapp/turnos-api/internal/observability/metrics"
	"github.com/odontoapp/turnos-api/internal/users"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

// BookingService runs the two-system booking transaction: the calendar event
// is created first, the local row second, and a failed local insert triggers
// a compensating delete of the event. The database's confirmed-start unique
// index is the final arbiter when two requests race past the advisory checks.
type BookingService struct {
	repo         Repository
	users        users.Repository
	provider     CalendarProvider
	clock        *clock.Clock
	schedule     Schedule
	cancelCutoff int // hours of notice required to cancel
	logger       *logging.Logger
	metrics      *metrics.BookingMetrics
}

// BookingServiceConfig bundles the service dependencies.
type BookingServiceConfig struct {
	Repo              Repository
	Users             users.Repository
	Provider          CalendarProvider
	Clock             *clock.Clock
	Schedule          Schedule
	CancelCutoffHours int
	Logger            *logging.Logger
	Metrics           *metrics.BookingMetrics
}

// NewBookingService wires the service.
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingService{
		repo:         cfg.Repo,
		users:        cfg.Users,
		provider:     cfg.Provider,
		clock:        cfg.Clock,
		schedule:     cfg.Schedule,
		cancelCutoff: cfg.CancelCutoffHours,
		logger:       logger.Named("booking"),
		metrics:      cfg.Metrics,
	}
}

// Create books a slot for the subject. Order matters: validation and
// advisory conflict checks mutate nothing, the calendar event is created
// before the local row, and a failed insert deletes the event again so no
// confirmed state exists in only one system.
func (s *BookingService) Create(ctx context.Context, subjectID string, req CreateRequest) (*Appointment, error) {
	startAt, err := s.validateSlot(req)
	if err != nil {
		s.metrics.ObserveBooking("create", "invalid")
		return nil, err
	}
	endAt := startAt.Add(ServiceDuration)

	subject, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("booking: load subject: %w", err)
	}
	if subject.Blocked {
		s.metrics.ObserveBooking("create", "blocked")
		return nil, ErrSubjectBlocked
	}

	// Advisory local check. Cheap, catches most duplicates before any
	// external call; the unique index catches the rest.
	if existing, err := s.repo.FindConfirmedAt(ctx, startAt.UTC()); err != nil {
		return nil, fmt.Errorf("booking: conflict check: %w", err)
	} else if existing != nil {
		s.metrics.ObserveConflict("local")
		s.metrics.ObserveBooking("create", "conflict")
		return nil, &ConflictError{Source: "local", StartAt: startAt, ExistingID: existing.ID}
	}

	if !s.provider.IsReady(ctx) {
		return nil, ErrUpstreamUnavailable
	}
	cal, err := s.provider.Calendar(ctx)
	if err != nil {
		return nil, ErrUpstreamUnavailable
	}

	// The slot must also be clear on the practitioner's calendar.
	events, err := cal.ListEvents(ctx, startAt, endAt)
	if err != nil {
		return nil, s.wrapCalendarErr("list events", err)
	}
	for _, ev := range events {
		if ev.Overlaps(startAt, endAt) {
			s.metrics.ObserveConflict("calendar")
			s.metrics.ObserveBooking("create", "conflict")
			return nil, &ConflictError{Source: "calendar", StartAt: startAt, ExistingID: ev.ID}
		}
	}

	ev, err := cal.CreateEvent(ctx, calendar.EventDraft{
		Summary:     "Turno: " + subject.FullName(),
		Description: s.eventDescription(subject, req),
		Start:       startAt,
		End:         endAt,
	})
	if err != nil {
		return nil, s.wrapCalendarErr("create event", err)
	}

	appt := &Appointment{
		SubjectID:        subjectID,
		StartAt:          startAt.UTC(),
		EndAt:            endAt.UTC(),
		Status:           StatusConfirmed,
		ConsultationKind: req.ConsultationKind,
		Notes:            req.Notes,
		ExternalEventID:  ev.ID,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		s.rollbackEvent(ctx, cal, ev.ID, startAt)
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.metrics.ObserveConflict("local")
			s.metrics.ObserveBooking("create", "conflict")
			return nil, conflict
		}
		s.metrics.ObserveBooking("create", "error")
		return nil, fmt.Errorf("booking: store appointment: %w", err)
	}

	s.metrics.ObserveBooking("create", "ok")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"subject_id", subjectID,
		"start_at", startAt.Format(time.RFC3339),
		"event_id", ev.ID,
	)
	return appt, nil
}

// rollbackEvent deletes the just-created calendar event after a failed local
// insert. Best effort: a delete failure leaves an orphan event that the
// practitioner must remove by hand, so it is logged loudly but never returned.
func (s *BookingService) rollbackEvent(ctx context.Context, cal calendar.EventAPI, eventID string, startAt time.Time) {
	if err := cal.DeleteEvent(ctx, eventID); err != nil {
		s.metrics.ObserveRollback("error")
		s.logger.Error("orphan calendar event: rollback delete failed, manual cleanup required",
			"event_id", eventID,
			"start_at", startAt.Format(time.RFC3339),
			"error", err,
		)
		return
	}
	s.metrics.ObserveRollback("ok")
	s.logger.Warn("calendar event rolled back after failed insert", "event_id", eventID)
}

// CancelResult reports a completed cancellation.
type CancelResult struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Hour string `json:"hour"`
}

// Cancel cancels the subject's appointment. The local transition is
// authoritative; deleting the mirrored event is best effort and a failure
// there leaves the sweep-visible event to be cleaned up manually.
func (s *BookingService) Cancel(ctx context.Context, subjectID, id string) (*CancelResult, error) {
	appt, err := s.repo.GetForSubject(ctx, id, subjectID)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, &ValidationError{Msg: "appointment is not active"}
	}

	remaining := s.clock.HoursUntil(appt.StartAt)
	if remaining < float64(s.cancelCutoff) {
		s.metrics.ObserveBooking("cancel", "too_late")
		return nil, &TooLateError{
			HoursRemaining: math.Round(remaining*10) / 10,
			MinimumHours:   s.cancelCutoff,
		}
	}

	if err := s.repo.Cancel(ctx, appt.ID); err != nil {
		s.metrics.ObserveBooking("cancel", "error")
		return nil, fmt.Errorf("booking: cancel appointment: %w", err)
	}

	if appt.ExternalEventID != "" {
		s.deleteMirroredEvent(ctx, appt)
	}

	s.metrics.ObserveBooking("cancel", "ok")
	local := appt.StartAt.In(s.clock.Location())
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "subject_id", subjectID)
	return &CancelResult{
		ID:   appt.ID,
		Date: s.clock.DayKey(local),
		Hour: formatHour(local.Hour()),
	}, nil
}

func (s *BookingService) deleteMirroredEvent(ctx context.Context, appt *Appointment) {
	if !s.provider.IsReady(ctx) {
		s.logger.Warn("calendar not connected, mirrored event not deleted", "event_id", appt.ExternalEventID)
		return
	}
	cal, err := s.provider.Calendar(ctx)
	if err == nil {
		err = cal.DeleteEvent(ctx, appt.ExternalEventID)
	}
	if err != nil {
		s.logger.Error("mirrored event delete failed, manual cleanup required",
			"appointment_id", appt.ID,
			"event_id", appt.ExternalEventID,
			"error", err,
		)
	}
}

// ListForSubject returns the subject's appointments, newest first. Expired
// confirmed rows are promoted to completed on the way, so the list never
// shows a confirmed appointment that already ended.
func (s *BookingService) ListForSubject(ctx context.Context, subjectID string) ([]Appointment, error) {
	promoted, err := s.repo.CompleteExpired(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("booking: promote expired: %w", err)
	}
	if promoted > 0 {
		s.logger.Debug("expired appointments completed", "count", promoted)
	}
	return s.repo.ListBySubject(ctx, subjectID)
}

// validateSlot checks the request against the working grid and returns the
// slot's start instant in the business timezone.
func (s *BookingService) validateSlot(req CreateRequest) (time.Time, error) {
	date, err := s.clock.ParseDate(req.Date)
	if err != nil {
		return time.Time{}, validationf("date must be YYYY-MM-DD")
	}
	hour, ok := parseHour(req.Hour)
	if !ok {
		return time.Time{}, validationf("hour must be on the hour, HH:00")
	}
	if !s.schedule.contains(hour) {
		return time.Time{}, validationf("hour must be between %s and %s", formatHour(s.schedule.StartHour), formatHour(s.schedule.EndHour-1))
	}
	if s.clock.IsWeekend(date) {
		return time.Time{}, validationf("appointments are weekdays only")
	}
	startAt := s.clock.At(date, hour)
	if !startAt.After(s.clock.Now()) {
		return time.Time{}, validationf("slot already passed")
	}
	if windowEnd := s.clock.Today().AddDate(0, 0, s.schedule.WindowDays); date.After(windowEnd) {
		return time.Time{}, validationf("date is beyond the %d-day booking window", s.schedule.WindowDays)
	}
	return startAt, nil
}

func (s *BookingService) eventDescription(subject *users.User, req CreateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Paciente: %s\n", subject.FullName())
	if subject.Phone != "" {
		fmt.Fprintf(&b, "Teléfono: %s\n", subject.Phone)
	}
	if subject.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", subject.Email)
	}
	if req.ConsultationKind != "" {
		fmt.Fprintf(&b, "Consulta: %s\n", req.ConsultationKind)
	}
	if req.Notes != "" {
		fmt.Fprintf(&b, "Notas: %s\n", req.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// wrapCalendarErr translates a calendar API failure into the booking error
// taxonomy.
func (s *BookingService) wrapCalendarErr(op string, err error) error {
	switch {
	case calendar.IsConflict(err):
		s.metrics.ObserveConflict("calendar")
		s.metrics.ObserveBooking("create", "conflict")
		return &ConflictError{Source: "calendar"}
	case calendar.IsAuthError(err):
		s.logger.Error("calendar credential rejected", "op", op, "error", err)
		return ErrUpstreamUnavailable
	default:
		s.metrics.ObserveBooking("create", "upstream_error")
		return &UpstreamError{Op: op, Err: err}
	}
}
