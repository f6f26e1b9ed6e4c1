package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
)

// DayLayout is the wire and display format of a calendar day.
const DayLayout = "2006-01-02"

// Day is a calendar date with no time-of-day or zone semantics.
// The backend stores days as document timestamps, so decoding accepts either
// a bare YYYY-MM-DD or a full RFC 3339 value and keeps only the date part.
type Day struct {
	date.Date
}

// NewDay returns the calendar day of t in t's own location.
func NewDay(t time.Time) Day {
	return Day{date.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	d, err := date.ParseDate(s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return Day{d}, nil
}

// IsZero reports whether d was never set.
func (d Day) IsZero() bool { return d.Time.IsZero() }

// String formats d as YYYY-MM-DD, or "" when unset.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DayLayout)
}

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool { return d.Time.Before(o.Time) }

// AddDays returns d shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	return Day{date.Date{Time: d.Time.AddDate(0, 0, n)}}
}

// MarshalJSON encodes d as "YYYY-MM-DD" or null.
func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "YYYY-MM-DD" or an RFC 3339 timestamp.
func (d *Day) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Day{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding day: %w", err)
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	if len(s) == len(DayLayout) {
		parsed, err := ParseDay(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDay(t.In(time.Local))
			return nil
		}
	}
	return fmt.Errorf("cannot parse day %q", s)
}

// MarshalYAML renders d as its YYYY-MM-DD string.
func (d Day) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
