package utils

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateFormats are the calendar layouts tried first, in priority order:
// yyyy-MM-dd, MM/dd/yyyy, dd/MM/yyyy, MMM dd, yyyy, MMMM dd, yyyy, yyyy/MM/dd, dd-MM-yyyy.
// Non-padded month/day verbs accept both "1" and "01".
var DateFormats = []string{
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/1/2",
	"2-1-2006",
}

// timestampFormats cover platform exports that carry a time of day.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// CivilDate truncates t to midnight UTC of the calendar date t shows in its own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date cell into a civil date, reporting whether any parser accepted it.
func ParseDate(dateStr string) (time.Time, bool) {
	s := strings.TrimSpace(dateStr)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range DateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return CivilDate(t), true
		}
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return CivilDate(t), true
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return CivilDate(t), true
	}
	return time.Time{}, false
}

// ParseDateOr parses dateStr, falling back to the civil date of now.
func ParseDateOr(dateStr string, now time.Time) time.Time {
	if t, ok := ParseDate(dateStr); ok {
		return t
	}
	return CivilDate(now)
}
