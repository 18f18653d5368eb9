package clock

import (
	"testing"
	"time"
)

const tz = "America/Argentina/Buenos_Aires"

// 2025-03-10 is a Monday. 17:30 UTC is 14:30 in Buenos Aires (UTC-3).
var refInstant = time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC)

func frozen(t *testing.T) *Clock {
	t.Helper()
	c, err := NewFrozen(tz, refInstant)
	if err != nil {
		t.Fatalf("NewFrozen: %v", err)
	}
	return c
}

func TestNewRejectsUnknownZone(t *testing.T) {
	if _, err := New("Not/AZone"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestNowIsLocal(t *testing.T) {
	c := frozen(t)
	now := c.Now()
	if now.Hour() != 14 || now.Minute() != 30 {
		t.Errorf("expected 14:30 local, got %02d:%02d", now.Hour(), now.Minute())
	}
	if now.Location().String() != tz {
		t.Errorf("expected %s location, got %s", tz, now.Location())
	}
}

func TestDayKey(t *testing.T) {
	c := frozen(t)
	// 01:30 UTC on the 11th is still 22:30 on the 10th locally.
	late := time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC)
	if got := c.DayKey(late); got != "2025-03-10" {
		t.Errorf("expected local day 2025-03-10, got %s", got)
	}
}

func TestParseDateAndAt(t *testing.T) {
	c := frozen(t)
	d, err := c.ParseDate("2025-03-12")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Hour() != 0 || c.DayKey(d) != "2025-03-12" {
		t.Errorf("expected local midnight of 2025-03-12, got %v", d)
	}

	at := c.At(d, 15)
	if at.Hour() != 15 || c.DayKey(at) != "2025-03-12" {
		t.Errorf("expected 15:00 local, got %v", at)
	}

	if _, err := c.ParseDate("12/03/2025"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestIsWeekend(t *testing.T) {
	c := frozen(t)
	sat, _ := c.ParseDate("2025-03-15")
	sun, _ := c.ParseDate("2025-03-16")
	mon, _ := c.ParseDate("2025-03-17")

	if !c.IsWeekend(sat) || !c.IsWeekend(sun) {
		t.Error("Saturday and Sunday should be weekend")
	}
	if c.IsWeekend(mon) {
		t.Error("Monday should not be weekend")
	}
}

func TestHoursUntil(t *testing.T) {
	c := frozen(t)
	target := c.Now().Add(25*time.Hour + 30*time.Minute)
	got := c.HoursUntil(target)
	if got < 25.49 || got > 25.51 {
		t.Errorf("expected ~25.5 hours, got %f", got)
	}
	if c.HoursUntil(c.Now().Add(-time.Hour)) >= 0 {
		t.Error("expected negative hours for past instant")
	}
}

func TestEndOfDay(t *testing.T) {
	c := frozen(t)
	d, _ := c.ParseDate("2025-03-12")
	end := c.EndOfDay(d)
	if c.DayKey(end) != "2025-03-12" {
		t.Errorf("end of day left the day: %v", end)
	}
	if end.Hour() != 23 || end.Minute() != 59 {
		t.Errorf("expected 23:59, got %v", end)
	}
}
