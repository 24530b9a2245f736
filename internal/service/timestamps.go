package service

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimestamp accepts ISO-8601 variants. Values without a zone are read as
// UTC and every result is returned in UTC.
func parseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, ErrInvalidStartedAt
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidStartedAt
}

func parseOptionalTimestamp(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	parsed, err := parseTimestamp(*raw)
	if err != nil {
		return nil
	}
	return &parsed
}
