// Package timeutil converts between time.Time and the epoch milliseconds used on disk.
package timeutil

import "time"

// EpochMillis converts t to Unix milliseconds; the zero time maps to 0.
func EpochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromEpochMillis is the inverse of EpochMillis; 0 maps to the zero time.
func FromEpochMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
