package reconcile

import (
	"testing"
	"time"

	"github.com/vendorops/attendance/internal/models"
)

func TestCalendar_IsNonWorking(t *testing.T) {
	holidays := []*models.Holiday{
		{Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Name: "Labour Day"},
		{Date: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)},
	}
	cal := NewCalendar([]int{0, 6}, holidays)

	tests := []struct {
		name       string
		date       time.Time
		nonWorking bool
		reason     string
	}{
		{"saturday", time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC), true, "weekend"},
		{"sunday", time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC), true, "weekend"},
		{"named holiday", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), true, "holiday: Labour Day"},
		{"unnamed holiday", time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), true, "holiday"},
		{"regular weekday", time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nonWorking, reason := cal.IsNonWorking(tt.date)
			if nonWorking != tt.nonWorking {
				t.Errorf("IsNonWorking(%s) = %v, want %v", tt.date, nonWorking, tt.nonWorking)
			}
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestCalendar_CustomWeekend(t *testing.T) {
	// Friday/Saturday weekend.
	cal := NewCalendar([]int{5, 6}, nil)

	if nonWorking, _ := cal.IsNonWorking(time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)); nonWorking {
		t.Error("Sunday should be a working day under a Fri/Sat weekend")
	}
	if nonWorking, _ := cal.IsNonWorking(time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)); !nonWorking {
		t.Error("Friday should be non-working under a Fri/Sat weekend")
	}
}

func TestCalendar_TimeOfDayIgnored(t *testing.T) {
	cal := NewCalendar(nil, []*models.Holiday{
		{Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Name: "Labour Day"},
	})

	noon := time.Date(2025, 5, 1, 12, 30, 0, 0, time.UTC)
	if nonWorking, _ := cal.IsNonWorking(noon); !nonWorking {
		t.Error("holiday match should ignore the time of day")
	}
}
