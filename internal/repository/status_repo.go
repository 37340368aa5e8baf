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

// StatusRepository reads vendor-declared daily status records.
type StatusRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *sql.DB, logger *zap.Logger) *StatusRepository {
	return &StatusRepository{db: db, logger: logger}
}

// ListByVendorRange retrieves a vendor's status records for an inclusive
// date range, ordered by date.
func (r *StatusRepository) ListByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*models.DailyStatusRecord, error) {
	query := `
		SELECT id, vendor_id, date, kind, half_am, half_pm,
			total_hours, extra_hours, approval_status, created_at, updated_at
		FROM daily_status_records
		WHERE vendor_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, vendorID, models.DateKey(from), models.DateKey(to))
	if err != nil {
		r.logger.Error("Failed to list status records",
			zap.Int64("vendor_id", vendorID), zap.Error(err))
		return nil, fmt.Errorf("failed to list status records: %w", err)
	}
	defer rows.Close()

	var records []*models.DailyStatusRecord
	for rows.Next() {
		var rec models.DailyStatusRecord
		var dateStr string
		var halfAM, halfPM sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.VendorID, &dateStr, &rec.Kind, &halfAM, &halfPM,
			&rec.TotalHours, &rec.ExtraHours, &rec.ApprovalStatus,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status record: %w", err)
		}
		if rec.Date, err = utils.ParseDate(dateStr); err != nil {
			return nil, err
		}
		rec.HalfAM = models.HalfDayKind(halfAM.String)
		rec.HalfPM = models.HalfDayKind(halfPM.String)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
