package models

import "time"

// DateLayout is the canonical date format used in storage and API payloads.
const DateLayout = "2006-01-02"

// DateKey normalizes a timestamp to its canonical date string.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Vendor is a contracted worker whose attendance is tracked. The vendor
// directory itself is owned externally; the core only reads the identity
// and the manager-of relation.
type Vendor struct {
	ID        int64
	Name      string
	ManagerID int64
	Active    bool
	CreatedAt time.Time
}

// DailyStatusRecord is a vendor's self-declared attendance for one date.
type DailyStatusRecord struct {
	ID       int64
	VendorID int64
	Date     time.Time

	Kind AttendanceKind

	// AM/PM sub-kinds are set only when a half-day kind carries per-half
	// detail; HalfNone otherwise.
	HalfAM HalfDayKind
	HalfPM HalfDayKind

	TotalHours float64
	ExtraHours float64

	ApprovalStatus ApprovalStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasHalfDetail returns true when both AM and PM sub-kinds are populated.
func (r *DailyStatusRecord) HasHalfDetail() bool {
	return r.HalfAM != HalfNone && r.HalfPM != HalfNone
}

// SwipeRecord is the badge-reader derived entry/exit log for one date.
// Imported from the card system; read-only to this service.
type SwipeRecord struct {
	ID       int64
	VendorID int64
	Date     time.Time

	Login  *time.Time
	Logout *time.Time

	Presence   Presence
	TotalHours float64
	ExtraHours float64
}

// HasGranularTimes returns true when both login and logout timestamps exist.
// Some import sources only carry the coarse presence flag.
func (s *SwipeRecord) HasGranularTimes() bool {
	return s.Login != nil && s.Logout != nil
}

// ApprovalWindow is an approved leave or WFH date range, inclusive on both ends.
type ApprovalWindow struct {
	ID        int64
	VendorID  int64
	Kind      WindowKind
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// Holiday is a configured non-working date.
type Holiday struct {
	Date time.Time
	Name string
}
