// Package schedule decides when a feed poller should next fetch.
//
// Weekends are active all day. Weekdays are active from an evening start hour until a
// cutoff shortly before midnight. Outside the window the poller sleeps until the next
// window opens instead of ticking every interval.
package schedule

import (
	"time"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/timeutil"
)

const (
	DefaultInterval     = time.Minute
	DefaultStartHour    = 17
	DefaultCutoffHour   = 23
	DefaultCutoffMinute = 59
)

// Policy describes the active polling window.
type Policy struct {
	Interval     time.Duration
	StartHour    int
	CutoffHour   int
	CutoffMinute int
	Location     *time.Location
	// AlwaysActive disables gating; every tick fetches.
	AlwaysActive bool
}

// DefaultPolicy returns the weekday-evening/all-weekend window in local time.
func DefaultPolicy() Policy {
	return Policy{
		Interval:     DefaultInterval,
		StartHour:    DefaultStartHour,
		CutoffHour:   DefaultCutoffHour,
		CutoffMinute: DefaultCutoffMinute,
		Location:     time.Local,
	}
}

func (p Policy) normalized() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.StartHour < 0 || p.StartHour > 23 {
		p.StartHour = DefaultStartHour
	}
	if p.CutoffHour < 0 || p.CutoffHour > 23 {
		p.CutoffHour = DefaultCutoffHour
	}
	if p.CutoffMinute < 0 || p.CutoffMinute > 59 {
		p.CutoffMinute = DefaultCutoffMinute
	}
	if p.Location == nil {
		p.Location = time.Local
	}
	return p
}

// IsActive reports whether now falls inside the polling window.
func (p Policy) IsActive(now time.Time) bool {
	p = p.normalized()
	if p.AlwaysActive {
		return true
	}
	t := now.In(p.Location)
	if isWeekend(t.Weekday()) {
		return true
	}
	return !t.Before(p.opensOn(t)) && t.Before(p.closesOn(t))
}

// NextActive returns the first instant strictly after now at which the window opens.
// It returns now itself when the window is already open.
func (p Policy) NextActive(now time.Time) time.Time {
	p = p.normalized()
	if p.IsActive(now) {
		return now
	}
	t := now.In(p.Location)
	for i := 0; i < 8; i++ {
		day := timeutil.StartOfDay(t).AddDate(0, 0, i)
		opens := day
		if !isWeekend(day.Weekday()) {
			opens = p.opensOn(day)
		}
		if opens.After(t) {
			return opens
		}
	}
	// Unreachable with a well-formed calendar; fall back to one interval.
	return now.Add(p.Interval)
}

// NextPollDelay returns how long the poller should wait before its next tick.
func NextPollDelay(now time.Time, p Policy) time.Duration {
	p = p.normalized()
	if p.IsActive(now) {
		return p.Interval
	}
	return p.NextActive(now).Sub(now)
}

func (p Policy) opensOn(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, p.StartHour, 0, 0, 0, p.Location)
}

func (p Policy) closesOn(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, p.CutoffHour, p.CutoffMinute, 0, 0, p.Location)
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// ResolveTimezone returns a location for a tz string, or nil if invalid.
func ResolveTimezone(tz string) *time.Location {
	if tz == "" {
		return nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil
	}
	return loc
}
