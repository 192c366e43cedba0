// Package timeutil provides time formatting helpers for entrant-facing
// notification text and audit timestamps.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// EventDateLayout is the human-readable layout used in notification bodies
// and denormalized onto recipient records ("Nov 4, 2026").
const EventDateLayout = "Jan 2, 2006"

// MissingDateText is rendered when an event has no scheduled date.
const MissingDateText = "Date not available"

// Now returns the current server time in UTC. All audit timestamps
// (notifiedAt, log entries) are stamped in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// FormatEventDate renders an event date for display. A nil date renders
// MissingDateText rather than an error: events without a confirmed date are
// a normal state while organizers are still planning.
func FormatEventDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return MissingDateText
	}
	return t.Format(EventDateLayout)
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
