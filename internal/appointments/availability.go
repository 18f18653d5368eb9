package appointments

import (
	"context"
	"fmt"

	"github.com/odontoapp/turnos-api/internal/calendar"
	"github.com/odontoapp/turnos-api/internal/clock"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

// CalendarProvider supplies calendar clients and credential readiness. The
// provider owns refresh; this package only checks readiness before use.
type CalendarProvider interface {
	IsReady(ctx context.Context) bool
	Calendar(ctx context.Context) (calendar.EventAPI, error)
}

// Schedule describes the working grid: hourly slots in [StartHour, EndHour)
// on weekdays, bookable up to WindowDays ahead.
type Schedule struct {
	StartHour  int
	EndHour    int
	WindowDays int
}

// SlotCount returns the number of hourly slots per working day.
func (s Schedule) SlotCount() int { return s.EndHour - s.StartHour }

func (s Schedule) contains(hour int) bool {
	return hour >= s.StartHour && hour < s.EndHour
}

// WorkSchedule is the display form of the working grid, surfaced alongside
// the bookable dates so clients can show opening hours without a second call.
type WorkSchedule struct {
	Days      string `json:"days"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DateOption is one bookable calendar day.
type DateOption struct {
	Date    string `json:"date"`
	DayName string `json:"day_name"`
	Weekday int    `json:"weekday"`
	IsToday bool   `json:"is_today"`
}

// Slot occupancy reasons, surfaced so clients can render specific guidance.
const (
	ReasonReserved = "reserved"       // confirmed local appointment
	ReasonBusy     = "calendar_busy"  // external calendar event overlaps
	ReasonPast     = "already_passed" // today, hour at or before current
)

// Slot is one hourly unit of business time with its availability verdict.
type Slot struct {
	Time      string `json:"time"`
	Hour      int    `json:"hour"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// HourGrid is the full annotated grid for one date.
type HourGrid struct {
	Date      string `json:"date"`
	DayName   string `json:"day_name"`
	IsToday   bool   `json:"is_today"`
	Slots     []Slot `json:"slots"`
	Available int    `json:"available_slots"`
	Occupied  int    `json:"occupied_slots"`
}

// AvailabilityEngine computes bookable slots by intersecting the working
// grid, local confirmed appointments and external calendar events. Results
// are never cached: external state changes out-of-band at any time.
type AvailabilityEngine struct {
	repo     Repository
	provider CalendarProvider
	clock    *clock.Clock
	schedule Schedule
	logger   *logging.Logger
}

// NewAvailabilityEngine wires the engine.
func NewAvailabilityEngine(repo Repository, provider CalendarProvider, clk *clock.Clock, schedule Schedule, logger *logging.Logger) *AvailabilityEngine {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityEngine{
		repo:     repo,
		provider: provider,
		clock:    clk,
		schedule: schedule,
		logger:   logger,
	}
}

// WorkSchedule describes the working grid for display.
func (e *AvailabilityEngine) WorkSchedule() WorkSchedule {
	return WorkSchedule{
		Days:      "Lunes a viernes",
		StartTime: formatHour(e.schedule.StartHour),
		EndTime:   formatHour(e.schedule.EndHour),
	}
}

// AvailableDates lists the next WindowDays calendar days from today
// (inclusive), weekdays only. Pure function of the business clock: a weekday
// that is already past closing is still listed; the hour-level filtering
// happens in AvailableHours.
func (e *AvailabilityEngine) AvailableDates() []DateOption {
	today := e.clock.Today()
	out := make([]DateOption, 0, e.schedule.WindowDays)
	for i := 0; i <= e.schedule.WindowDays; i++ {
		day := today.AddDate(0, 0, i)
		if e.clock.IsWeekend(day) {
			continue
		}
		out = append(out, DateOption{
			Date:    e.clock.DayKey(day),
			DayName: day.Weekday().String(),
			Weekday: int(day.Weekday()),
			IsToday: i == 0,
		})
	}
	return out
}

// AvailableHours computes the annotated hourly grid for a date.
//
// The union of local-confirmed and external-event occupancy is the complete
// exclusion set; no other source of truth is consulted.
func (e *AvailabilityEngine) AvailableHours(ctx context.Context, dateStr string) (*HourGrid, error) {
	date, err := e.clock.ParseDate(dateStr)
	if err != nil {
		return nil, &InvalidDateError{Date: dateStr, Reason: "expected YYYY-MM-DD"}
	}
	if e.clock.IsWeekend(date) {
		return nil, &InvalidDateError{Date: dateStr, Reason: "appointments are weekdays only"}
	}
	if date.Before(e.clock.Today()) {
		return nil, &InvalidDateError{Date: dateStr, Reason: "date is in the past"}
	}
	if !e.provider.IsReady(ctx) {
		return nil, ErrUpstreamUnavailable
	}

	occupied := make(map[int]string, e.schedule.SlotCount())

	// Local confirmed appointments on the date occupy their exact hour.
	dayStart := e.clock.StartOfDay(date)
	dayEnd := e.clock.EndOfDay(date)
	local, err := e.repo.ConfirmedBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("availability: local occupancy: %w", err)
	}
	for _, appt := range local {
		occupied[appt.StartAt.In(e.clock.Location()).Hour()] = ReasonReserved
	}

	// External events block every grid slot they overlap: a 90-minute event
	// takes out two hourly slots. Conservative on purpose.
	cal, err := e.provider.Calendar(ctx)
	if err != nil {
		return nil, ErrUpstreamUnavailable
	}
	events, err := cal.ListEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, &UpstreamError{Op: "list events", Err: err}
	}
	for _, ev := range events {
		for hour := e.schedule.StartHour; hour < e.schedule.EndHour; hour++ {
			slotStart := e.clock.At(date, hour)
			slotEnd := slotStart.Add(ServiceDuration)
			if ev.Overlaps(slotStart, slotEnd) {
				if _, taken := occupied[hour]; !taken {
					occupied[hour] = ReasonBusy
				}
			}
		}
	}

	// On the current day, every slot at or before the current local hour has
	// already started.
	now := e.clock.Now()
	isToday := e.clock.DayKey(date) == e.clock.DayKey(now)
	if isToday {
		for hour := e.schedule.StartHour; hour <= now.Hour() && hour < e.schedule.EndHour; hour++ {
			occupied[hour] = ReasonPast
		}
	}

	grid := &HourGrid{
		Date:    dateStr,
		DayName: date.Weekday().String(),
		IsToday: isToday,
		Slots:   make([]Slot, 0, e.schedule.SlotCount()),
	}
	for hour := e.schedule.StartHour; hour < e.schedule.EndHour; hour++ {
		reason, taken := occupied[hour]
		grid.Slots = append(grid.Slots, Slot{
			Time:      formatHour(hour),
			Hour:      hour,
			EndTime:   formatHour(hour + 1),
			Available: !taken,
			Reason:    reason,
		})
		if taken {
			grid.Occupied++
		} else {
			grid.Available++
		}
	}
	return grid, nil
}
