package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var clockRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// ParseClock parses a "HH:MM" clock value into minutes since midnight.
func ParseClock(value string) (int, error) {
	m := clockRegex.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid clock value %q, expected HH:MM", value)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes, nil
}

// MinuteOfDay returns the minutes elapsed since midnight for a timestamp.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a canonical "YYYY-MM-DD" date into a midnight UTC time.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

// Midnight truncates a timestamp to the start of its day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
