package reconcile

import (
	"time"

	"github.com/vendorops/attendance/internal/models"
)

// Calendar resolves whether a date is a non-working day. Pure value type:
// built once per run from the weekend rule and the holiday set, then only
// read.
type Calendar struct {
	weekend  map[time.Weekday]bool
	holidays map[string]string // date key -> holiday name
}

// NewCalendar builds a calendar from weekend weekday numbers (time.Weekday
// values) and holiday rows.
func NewCalendar(weekendDays []int, holidays []*models.Holiday) *Calendar {
	weekend := make(map[time.Weekday]bool, len(weekendDays))
	for _, d := range weekendDays {
		weekend[time.Weekday(d)] = true
	}

	names := make(map[string]string, len(holidays))
	for _, h := range holidays {
		names[models.DateKey(h.Date)] = h.Name
	}

	return &Calendar{weekend: weekend, holidays: names}
}

// IsNonWorking reports whether the date is exempt from reconciliation,
// with a human-readable reason when it is.
func (c *Calendar) IsNonWorking(date time.Time) (bool, string) {
	if c.weekend[date.Weekday()] {
		return true, "weekend"
	}
	if name, ok := c.holidays[models.DateKey(date)]; ok {
		if name == "" {
			return true, "holiday"
		}
		return true, "holiday: " + name
	}
	return false, ""
}
