// Package clock provides the business clock. The practice operates in one
// fixed timezone; every date comparison in the system goes through this
// package rather than the host-local time.
package clock

import (
	"fmt"
	"time"
)

// DayKeyLayout is the canonical local-date format used across the API.
const DayKeyLayout = "2006-01-02"

// Clock resolves instants against the business timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Clock for the named IANA timezone.
func New(tzName string) (*Clock, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("clock: load location %q: %w", tzName, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFrozen creates a Clock pinned to a fixed instant. Test helper.
func NewFrozen(tzName string, at time.Time) (*Clock, error) {
	c, err := New(tzName)
	if err != nil {
		return nil, err
	}
	c.now = func() time.Time { return at }
	return c, nil
}

// Location returns the business timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the current instant expressed in the business timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns local midnight of the current day.
func (c *Clock) Today() time.Time {
	return c.StartOfDay(c.Now())
}

// StartOfDay returns local midnight of t's day.
func (c *Clock) StartOfDay(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// EndOfDay returns the last nanosecond of t's local day.
func (c *Clock) EndOfDay(t time.Time) time.Time {
	return c.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey formats an instant as the local YYYY-MM-DD key.
func (c *Clock) DayKey(t time.Time) string {
	return t.In(c.loc).Format(DayKeyLayout)
}

// ParseDate parses a YYYY-MM-DD string as local midnight.
func (c *Clock) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, s, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: parse date %q: %w", s, err)
	}
	return t, nil
}

// At returns the instant at the given local wall-clock hour of date's day.
func (c *Clock) At(date time.Time, hour int) time.Time {
	lt := date.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), hour, 0, 0, 0, c.loc)
}

// AddMinutes shifts an instant by n minutes.
func (c *Clock) AddMinutes(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Minute).In(c.loc)
}

// IsWeekend reports whether t falls on a Saturday or Sunday locally.
func (c *Clock) IsWeekend(t time.Time) bool {
	wd := t.In(c.loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// HoursUntil returns the fractional hours from now until t. Negative when t
// is in the past.
func (c *Clock) HoursUntil(t time.Time) float64 {
	return t.Sub(c.Now()).Hours()
}
