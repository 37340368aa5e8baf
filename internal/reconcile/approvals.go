package reconcile

import (
	"time"

	"github.com/vendorops/attendance/internal/models"
)

// ApprovalIndex is the per-vendor expansion of approved leave/WFH windows
// into date sets. Built once per vendor per run; read-only afterwards.
type ApprovalIndex struct {
	leave map[string]struct{}
	wfh   map[string]struct{}
}

// BuildApprovalIndex expands each window day by day, clamped at the lower
// bound. Inputs are never mutated.
func BuildApprovalIndex(windows []*models.ApprovalWindow, lowerBound time.Time) *ApprovalIndex {
	idx := &ApprovalIndex{
		leave: make(map[string]struct{}),
		wfh:   make(map[string]struct{}),
	}

	for _, w := range windows {
		start := w.StartDate
		if start.Before(lowerBound) {
			start = lowerBound
		}
		for d := start; !d.After(w.EndDate); d = d.AddDate(0, 0, 1) {
			key := models.DateKey(d)
			switch w.Kind {
			case models.WindowLeave:
				idx.leave[key] = struct{}{}
			case models.WindowWfh:
				idx.wfh[key] = struct{}{}
			}
		}
	}

	return idx
}

// OnLeave reports whether the date falls inside an approved leave window.
func (i *ApprovalIndex) OnLeave(date time.Time) bool {
	_, ok := i.leave[models.DateKey(date)]
	return ok
}

// OnWfh reports whether the date falls inside an approved WFH window.
func (i *ApprovalIndex) OnWfh(date time.Time) bool {
	_, ok := i.wfh[models.DateKey(date)]
	return ok
}

// LeaveCount returns the number of expanded leave dates.
func (i *ApprovalIndex) LeaveCount() int { return len(i.leave) }

// WfhCount returns the number of expanded WFH dates.
func (i *ApprovalIndex) WfhCount() int { return len(i.wfh) }
