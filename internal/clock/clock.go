// Package clock abstracts wall-clock reads so the engines can be driven
// with injected instants in tests.
package clock

import (
	"strings"
	"sync"
	"time"
)

// DateLayout is the calendar-date format used for cleared_on values and
// the last-rollover setting.
const DateLayout = "2006-01-02"

type Clock interface {
	Now() time.Time
}

// System reads the host clock in the local zone.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fake is a settable clock for tests.
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

func NewFake(t time.Time) *Fake {
	return &Fake{t: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NextMidnight returns the first midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// DateOf formats t's local calendar date.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar date in the local zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// At places an "HH:MM" wall time on day's calendar date. Unparsable
// values fall back to fallbackHour:00.
func At(day time.Time, hhmm string, fallbackHour int) time.Time {
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		hour, minute = fallbackHour, 0
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
