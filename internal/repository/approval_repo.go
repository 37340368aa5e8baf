package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/models"
	"github.com/vendorops/attendance/pkg/utils"
)

// ApprovalWindowRepository reads approved leave/WFH windows.
type ApprovalWindowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalWindowRepository creates a new approval window repository
func NewApprovalWindowRepository(db *sql.DB, logger *zap.Logger) *ApprovalWindowRepository {
	return &ApprovalWindowRepository{db: db, logger: logger}
}

// ListWindows retrieves a vendor's approved windows that end on or after the
// lower bound date.
func (r *ApprovalWindowRepository) ListWindows(ctx context.Context, vendorID int64, lowerBound time.Time) ([]*models.ApprovalWindow, error) {
	query := `
		SELECT id, vendor_id, kind, start_date, end_date, created_at
		FROM approval_windows
		WHERE vendor_id = ? AND end_date >= ?
		ORDER BY start_date
	`

	rows, err := r.db.QueryContext(ctx, query, vendorID, models.DateKey(lowerBound))
	if err != nil {
		r.logger.Error("Failed to list approval windows",
			zap.Int64("vendor_id", vendorID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approval windows: %w", err)
	}
	defer rows.Close()

	var windows []*models.ApprovalWindow
	for rows.Next() {
		var w models.ApprovalWindow
		var startStr, endStr string
		if err := rows.Scan(&w.ID, &w.VendorID, &w.Kind, &startStr, &endStr, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval window: %w", err)
		}
		if w.StartDate, err = utils.ParseDate(startStr); err != nil {
			return nil, err
		}
		if w.EndDate, err = utils.ParseDate(endStr); err != nil {
			return nil, err
		}
		windows = append(windows, &w)
	}
	return windows, rows.Err()
}
