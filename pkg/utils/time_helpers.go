package utils

import (
	"fmt"
	"time"
)

const (
	DateLayout       = "2006-01-02"
	ClockLayout      = "15:04"
	NoteMarkerLayout = "2006-01-02 15:04"
)

// NoteMarker is the separator put in front of every appended note after the first.
func NoteMarker(t time.Time, loc *time.Location) string {
	return "\n\n--- " + t.In(loc).Format(NoteMarkerLayout) + " ---\n"
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// NormalizeClock accepts "H:MM", "HH:MM" or "HH:MM:SS" and returns "HH:MM".
func NormalizeClock(s string) (string, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q, expected HH:MM", s)
}
