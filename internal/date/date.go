// Package date provides a calendar Date that marshals as YYYY-MM-DD, plus the
// day arithmetic the scheduler needs. All values live in UTC so that schedules
// are reproducible regardless of the host timezone.
package date

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const format = "2006-01-02"

// Day is the length of one scheduling day.
const Day = 24 * time.Hour

// Date represents a calendar date without time or timezone.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns today's date.
func Today() Date {
	return Of(time.Now())
}

// Of strips the time-of-day from t.
func Of(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

// Parse parses a YYYY-MM-DD string into a Date. A full RFC 3339 timestamp is
// accepted too and truncated to its calendar day.
func Parse(s string) (Date, error) {
	t, err := time.Parse(format, s)
	if err == nil {
		return Date{t}, nil
	}
	if ts, tsErr := time.Parse(time.RFC3339, s); tsErr == nil {
		return Of(ts), nil
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(format)
}

// Ptr returns a pointer to a copy of d, for optional fields.
func (d Date) Ptr() *Date {
	return &d
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.v3 Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := Parse(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddDays moves t by a possibly fractional number of days.
func AddDays(t time.Time, days float64) time.Time {
	return t.Add(time.Duration(days * float64(Day)))
}

// DaysBetween returns (to - from) in days as a real number.
func DaysBetween(from, to time.Time) float64 {
	return float64(to.Sub(from)) / float64(Day)
}

// CeilDay returns t unchanged when it falls on midnight UTC, otherwise the
// following midnight.
func CeilDay(t time.Time) time.Time {
	t = t.UTC()
	day := Of(t).Time
	if day.Equal(t) {
		return day
	}
	return day.Add(Day)
}

// FormatTime renders a schedule instant as its calendar day. A zero time
// renders as an em dash, matching how empty cells are shown.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.UTC().Format(format)
}
