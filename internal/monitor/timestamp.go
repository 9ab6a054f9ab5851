package monitor

import (
	"fmt"
	"time"
)

// TimestampLayout is the canonical UTC timestamp format used in persisted
// state and stats documents.
const TimestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t as the canonical UTC timestamp string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a canonical UTC timestamp string.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
