package utils

import "time"

// FormatRFC3339 renders a timestamp the way API responses expose it
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NowRFC3339 returns the current time in the API response format
func NowRFC3339() string {
	return FormatRFC3339(time.Now())
}

// FormatStoredTime renders a timestamp for registry persistence.
// Nanosecond precision so a stored diagram round-trips exactly.
func FormatStoredTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseStoredTime parses a timestamp written by FormatStoredTime
func ParseStoredTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
