package utils

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"9:05", 545, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"11:60", 0, true},
		{"1100", 0, true},
		{"", 0, true},
		{"noon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseClock(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q) expected error", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) unexpected error: %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(545); got != "09:05" {
		t.Errorf("FormatClock(545) = %q, want %q", got, "09:05")
	}
	if got := FormatClock(0); got != "00:00" {
		t.Errorf("FormatClock(0) = %q, want %q", got, "00:00")
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-03-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}

	if _, err := ParseDate("03/03/2025"); err == nil {
		t.Error("expected error for non-canonical date format")
	}
}

func TestMidnight(t *testing.T) {
	in := time.Date(2025, 3, 3, 17, 45, 12, 999, time.UTC)
	got := Midnight(in)
	want := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Midnight = %v, want %v", got, want)
	}
}

func TestMinuteOfDay(t *testing.T) {
	if got := MinuteOfDay(time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)); got != 870 {
		t.Errorf("MinuteOfDay = %d, want 870", got)
	}
}
