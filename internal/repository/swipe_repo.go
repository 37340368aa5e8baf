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

// SwipeRepository reads imported swipe-card records. Read-only to this
// service; rows are written by the import pipeline.
type SwipeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSwipeRepository creates a new swipe repository
func NewSwipeRepository(db *sql.DB, logger *zap.Logger) *SwipeRepository {
	return &SwipeRepository{db: db, logger: logger}
}

// ListByVendorRange retrieves a vendor's swipe records for an inclusive
// date range, ordered by date.
func (r *SwipeRepository) ListByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*models.SwipeRecord, error) {
	query := `
		SELECT id, vendor_id, date, login_time, logout_time,
			presence, total_hours, extra_hours
		FROM swipe_records
		WHERE vendor_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, vendorID, models.DateKey(from), models.DateKey(to))
	if err != nil {
		r.logger.Error("Failed to list swipe records",
			zap.Int64("vendor_id", vendorID), zap.Error(err))
		return nil, fmt.Errorf("failed to list swipe records: %w", err)
	}
	defer rows.Close()

	var records []*models.SwipeRecord
	for rows.Next() {
		var rec models.SwipeRecord
		var dateStr string
		var login, logout sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.VendorID, &dateStr, &login, &logout,
			&rec.Presence, &rec.TotalHours, &rec.ExtraHours,
		); err != nil {
			return nil, fmt.Errorf("failed to scan swipe record: %w", err)
		}
		if rec.Date, err = utils.ParseDate(dateStr); err != nil {
			return nil, err
		}
		if login.Valid {
			rec.Login = &login.Time
		}
		if logout.Valid {
			rec.Logout = &logout.Time
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
