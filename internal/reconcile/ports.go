package reconcile

import (
	"context"
	"time"

	"github.com/vendorops/attendance/internal/models"
)

// VendorSource resolves the vendors in scope for a run. The vendor directory
// is owned externally; only identity and the manager relation are read.
type VendorSource interface {
	GetByID(ctx context.Context, id int64) (*models.Vendor, error)
	ListActive(ctx context.Context) ([]*models.Vendor, error)
}

// StatusReader loads declared daily status records for a vendor.
type StatusReader interface {
	ListByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*models.DailyStatusRecord, error)
}

// SwipeReader loads imported swipe records for a vendor.
type SwipeReader interface {
	ListByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*models.SwipeRecord, error)
}

// ApprovalSource loads approved leave/WFH windows ending on or after the
// lower bound date.
type ApprovalSource interface {
	ListWindows(ctx context.Context, vendorID int64, lowerBound time.Time) ([]*models.ApprovalWindow, error)
}

// HolidaySource loads configured holidays inside a date range.
type HolidaySource interface {
	ListRange(ctx context.Context, from, to time.Time) ([]*models.Holiday, error)
}

// MismatchStore persists accepted findings. Insert is a check-and-insert
// primitive: it reports false without error when a record already exists for
// the same (vendor, date).
type MismatchStore interface {
	ExistsForVendorDate(ctx context.Context, vendorID int64, date time.Time) (bool, error)
	Insert(ctx context.Context, record *models.MismatchRecord) (bool, error)
}
