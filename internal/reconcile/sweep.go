// Package reconcile keeps the local appointment store consistent with the
// practice calendar. The calendar wins: a confirmed appointment whose
// mirrored event disappeared was cancelled by the practitioner, and the local
// row follows it.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/odontoapp/turnos-api/internal/appointments"
	"github.com/odontoapp/turnos-api/internal/clock"
	"github.com/odontoapp/turnos-api/internal/observability/metrics"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

// Sweeper runs one reconciliation pass over the upcoming booking window.
type Sweeper struct {
	repo       appointments.Repository
	provider   appointments.CalendarProvider
	clock      *clock.Clock
	windowDays int
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
}

// SweeperConfig bundles the sweeper dependencies.
type SweeperConfig struct {
	Repo       appointments.Repository
	Provider   appointments.CalendarProvider
	Clock      *clock.Clock
	WindowDays int
	Logger     *logging.Logger
	Metrics    *metrics.BookingMetrics
}

// NewSweeper wires the sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Sweeper{
		repo:       cfg.Repo,
		provider:   cfg.Provider,
		clock:      cfg.Clock,
		windowDays: windowDays,
		logger:     logger.Named("reconcile"),
		metrics:    cfg.Metrics,
	}
}

// Result summarizes one sweep.
type Result struct {
	EventsSeen    int       `json:"events_seen"`
	ConfirmedSeen int       `json:"confirmed_seen"`
	Cancelled     int       `json:"cancelled"`
	Kept          int       `json:"kept"`
	RanAt         time.Time `json:"ran_at"`
}

// Run executes one sweep: list every event in the booking window, then cancel
// each confirmed appointment whose mirrored event no longer exists. Rows
// without an external reference are kept and logged; cancelling them would
// turn a data bug into lost bookings. Re-running against unchanged state is a
// no-op.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	cal, err := s.provider.Calendar(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	windowEnd := s.clock.EndOfDay(now.AddDate(0, 0, s.windowDays))

	events, err := cal.ListEvents(ctx, now, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list events: %w", err)
	}
	alive := make(map[string]struct{}, len(events))
	for _, ev := range events {
		alive[ev.ID] = struct{}{}
	}

	confirmed, err := s.repo.ConfirmedFrom(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list confirmed: %w", err)
	}

	result := &Result{
		EventsSeen:    len(events),
		ConfirmedSeen: len(confirmed),
		RanAt:         now.UTC(),
	}
	for _, appt := range confirmed {
		if appt.StartAt.After(windowEnd) {
			result.Kept++
			continue
		}
		if appt.ExternalEventID == "" {
			s.logger.Warn("confirmed appointment has no calendar reference, skipping",
				"appointment_id", appt.ID,
				"start_at", appt.StartAt.Format(time.RFC3339),
			)
			result.Kept++
			continue
		}
		if _, ok := alive[appt.ExternalEventID]; ok {
			result.Kept++
			continue
		}
		if err := s.repo.Cancel(ctx, appt.ID); err != nil {
			return result, fmt.Errorf("reconcile: cancel %s: %w", appt.ID, err)
		}
		result.Cancelled++
		s.logger.Info("appointment cancelled, calendar event removed upstream",
			"appointment_id", appt.ID,
			"event_id", appt.ExternalEventID,
			"start_at", appt.StartAt.Format(time.RFC3339),
		)
	}

	s.metrics.ObserveSweep(result.Cancelled)
	s.logger.Info("sweep finished",
		"events_seen", result.EventsSeen,
		"confirmed_seen", result.ConfirmedSeen,
		"cancelled", result.Cancelled,
		"kept", result.Kept,
	)
	return result, nil
}
