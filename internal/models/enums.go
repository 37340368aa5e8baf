package models

// AttendanceKind is the declared attendance type on a daily status record.
type AttendanceKind string

const (
	KindInOfficeFull AttendanceKind = "IN_OFFICE_FULL"
	KindInOfficeHalf AttendanceKind = "IN_OFFICE_HALF"
	KindWfhFull      AttendanceKind = "WFH_FULL"
	KindWfhHalf      AttendanceKind = "WFH_HALF"
	KindLeaveFull    AttendanceKind = "LEAVE_FULL"
	KindLeaveHalf    AttendanceKind = "LEAVE_HALF"
	KindAbsent       AttendanceKind = "ABSENT"
)

var validKinds = map[AttendanceKind]bool{
	KindInOfficeFull: true,
	KindInOfficeHalf: true,
	KindWfhFull:      true,
	KindWfhHalf:      true,
	KindLeaveFull:    true,
	KindLeaveHalf:    true,
	KindAbsent:       true,
}

// IsValid returns true if the kind is a known attendance kind.
func (k AttendanceKind) IsValid() bool {
	return validKinds[k]
}

// IsHalfDay returns true for the half-day variants.
func (k AttendanceKind) IsHalfDay() bool {
	return k == KindInOfficeHalf || k == KindWfhHalf || k == KindLeaveHalf
}

// String returns the string representation of the kind.
func (k AttendanceKind) String() string {
	return string(k)
}

// HalfDayKind is the sub-kind assigned to one half (AM or PM) of a day.
type HalfDayKind string

const (
	HalfNone     HalfDayKind = ""
	HalfInOffice HalfDayKind = "IN_OFFICE"
	HalfWfh      HalfDayKind = "WFH"
	HalfLeave    HalfDayKind = "LEAVE"
	HalfAbsent   HalfDayKind = "ABSENT"
)

// IsValid returns true if the sub-kind is a known half-day kind.
func (h HalfDayKind) IsValid() bool {
	switch h {
	case HalfInOffice, HalfWfh, HalfLeave, HalfAbsent:
		return true
	}
	return false
}

func (h HalfDayKind) String() string {
	return string(h)
}

// Presence is the coarse presence code derived from a swipe record.
type Presence string

const (
	PresencePresent Presence = "PRESENT"
	PresenceAbsent  Presence = "ABSENT"
)

func (p Presence) String() string {
	return string(p)
}

// ApprovalStatus is the review status of a daily status record. This is a
// separate axis from the mismatch workflow state below: a vendor's daily
// submission is approved or rejected by their manager before it is ever
// reconciled against swipe evidence.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

func (a ApprovalStatus) String() string {
	return string(a)
}

// MismatchCategory classifies a reconciliation finding.
type MismatchCategory string

const (
	CategoryMissingSubmission   MismatchCategory = "MISSING_SUBMISSION"
	CategoryStatusSwipeConflict MismatchCategory = "STATUS_SWIPE_CONFLICT"
	CategoryApprovalMissing     MismatchCategory = "APPROVAL_MISSING"
	CategoryTimeValidation      MismatchCategory = "TIME_VALIDATION"
	CategoryHalfDayConflict     MismatchCategory = "HALF_DAY_CONFLICT"
	CategoryOvertimeConflict    MismatchCategory = "OVERTIME_CONFLICT"
)

// AllCategories returns every mismatch category in a stable order.
func AllCategories() []MismatchCategory {
	return []MismatchCategory{
		CategoryMissingSubmission,
		CategoryStatusSwipeConflict,
		CategoryApprovalMissing,
		CategoryTimeValidation,
		CategoryHalfDayConflict,
		CategoryOvertimeConflict,
	}
}

// IsValid returns true if the category is a known mismatch category.
func (c MismatchCategory) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func (c MismatchCategory) String() string {
	return string(c)
}

// Severity grades a finding.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank returns an ordinal for severity comparison; unknown severities rank lowest.
func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

func (s Severity) String() string {
	return string(s)
}

// WindowKind distinguishes leave approval windows from WFH approval windows.
type WindowKind string

const (
	WindowLeave WindowKind = "LEAVE"
	WindowWfh   WindowKind = "WFH"
)

func (w WindowKind) String() string {
	return string(w)
}
