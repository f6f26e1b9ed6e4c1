package timecalc

import (
	"fmt"
	"time"

	"github.com/0xPratikag/clinicctl/internal/model"
)

// Layouts the device commands expect.
const (
	PullWindowLayout = "2006-01-02 15:04"
	SyncTimeLayout   = "2006-01-02T15:04:05"
	ClockLayout      = "15:04"
)

// FormatMinutes formats minutes as a human-readable string like "8h 30m" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h := minutes / 60
	m := minutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatClock renders t as local HH:MM, or "--" when t is nil.
func FormatClock(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "--"
	}
	return t.In(time.Local).Format(ClockLayout)
}

// FormatTimestamp renders t as local YYYY-MM-DD HH:MM, or "--" when t is nil.
func FormatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "--"
	}
	return t.In(time.Local).Format(PullWindowLayout)
}

// DefaultRange returns [today-days, today] for the calendar day of now.
func DefaultRange(now time.Time, days int) (model.Day, model.Day) {
	to := model.NewDay(now)
	return to.AddDays(-days), to
}

// MonthRange returns the first and last calendar day of now's month.
func MonthRange(now time.Time) (model.Day, model.Day) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return model.NewDay(first), model.NewDay(last)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:00 of the same day, the last minute a pull window
// can name.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysInRange counts the calendar days in [from, to], or 0 when from > to.
func DaysInRange(from, to model.Day) int {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 0
	}
	return int(to.Time.Sub(from.Time).Hours()/24) + 1
}
