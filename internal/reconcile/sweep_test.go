package reconcile

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/odontoapp/turnos-api/internal/appointments"
	"github.com/odontoapp/turnos-api/internal/calendar"
	"github.com/odontoapp/turnos-api/internal/clock"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

const testTZ = "America/Argentina/Buenos_Aires"

// Monday 2025-03-10 14:30 local.
var refInstant = time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error")
}

type fixture struct {
	sweeper *Sweeper
	repo    *appointments.InMemoryRepository
	fake    *calendar.Fake
	clk     *clock.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk, err := clock.NewFrozen(testTZ, refInstant)
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	repo := appointments.NewInMemoryRepository()
	fake := calendar.NewFake()
	sweeper := NewSweeper(SweeperConfig{
		Repo:       repo,
		Provider:   fake,
		Clock:      clk,
		WindowDays: 30,
		Logger:     testLogger(),
	})
	return &fixture{sweeper: sweeper, repo: repo, fake: fake, clk: clk}
}

func (f *fixture) seed(t *testing.T, dateStr string, hour int, eventID string, mirrored bool) *appointments.Appointment {
	t.Helper()
	date, err := f.clk.ParseDate(dateStr)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	start := f.clk.At(date, hour)
	appt := &appointments.Appointment{
		SubjectID:       "user-1",
		StartAt:         start.UTC(),
		EndAt:           start.Add(time.Hour).UTC(),
		Status:          appointments.StatusConfirmed,
		ExternalEventID: eventID,
	}
	if err := f.repo.Create(context.Background(), appt); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	if mirrored && eventID != "" {
		f.fake.Seed(calendar.Event{ID: eventID, Start: start, End: start.Add(time.Hour)})
	}
	return appt
}

func (f *fixture) status(t *testing.T, id string) appointments.Status {
	t.Helper()
	appt, err := f.repo.GetForSubject(context.Background(), id, "user-1")
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	return appt.Status
}

func TestSweepCancelsRowsWithoutLiveEvent(t *testing.T) {
	f := newFixture(t)
	kept := f.seed(t, "2025-03-12", 16, "evt-alive", true)
	orphan := f.seed(t, "2025-03-13", 14, "evt-gone", false)

	result, err := f.sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Cancelled != 1 || result.Kept != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := f.status(t, kept.ID); got != appointments.StatusConfirmed {
		t.Errorf("mirrored appointment must stay confirmed, got %s", got)
	}
	if got := f.status(t, orphan.ID); got != appointments.StatusCancelled {
		t.Errorf("orphaned appointment must be cancelled, got %s", got)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "2025-03-12", 16, "evt-alive", true)
	f.seed(t, "2025-03-13", 14, "evt-gone", false)

	first, err := f.sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.Cancelled != 1 {
		t.Fatalf("expected first run to cancel, got %+v", first)
	}
	if second.Cancelled != 0 {
		t.Fatalf("second run against unchanged state must be a no-op, got %+v", second)
	}
}

func TestSweepKeepsRowsWithoutExternalReference(t *testing.T) {
	f := newFixture(t)
	bare := f.seed(t, "2025-03-12", 16, "", false)

	result, err := f.sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Cancelled != 0 || result.Kept != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := f.status(t, bare.ID); got != appointments.StatusConfirmed {
		t.Errorf("unreferenced appointment must be kept, got %s", got)
	}
}

func TestSweepKeepsRowsBeyondWindow(t *testing.T) {
	f := newFixture(t)
	// Starts after the 30-day window, so its event was never listed.
	far := f.seed(t, "2025-06-02", 16, "evt-far", false)

	result, err := f.sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Cancelled != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := f.status(t, far.ID); got != appointments.StatusConfirmed {
		t.Errorf("out-of-window appointment must be kept, got %s", got)
	}
}

func TestSweepRequiresCredential(t *testing.T) {
	f := newFixture(t)
	f.fake.Connected = false

	_, err := f.sweeper.Run(context.Background())
	if !errors.Is(err, calendar.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSweepSurfacesListFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.ListErr = errors.New("api down")

	if _, err := f.sweeper.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
