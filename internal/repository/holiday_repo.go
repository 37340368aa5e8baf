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

// HolidayRepository reads configured non-working dates.
type HolidayRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHolidayRepository creates a new holiday repository
func NewHolidayRepository(db *sql.DB, logger *zap.Logger) *HolidayRepository {
	return &HolidayRepository{db: db, logger: logger}
}

// ListRange retrieves holidays inside an inclusive date range.
func (r *HolidayRepository) ListRange(ctx context.Context, from, to time.Time) ([]*models.Holiday, error) {
	query := `
		SELECT date, name
		FROM holidays
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, models.DateKey(from), models.DateKey(to))
	if err != nil {
		r.logger.Error("Failed to list holidays", zap.Error(err))
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []*models.Holiday
	for rows.Next() {
		var h models.Holiday
		var dateStr string
		if err := rows.Scan(&dateStr, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = utils.ParseDate(dateStr); err != nil {
			return nil, err
		}
		holidays = append(holidays, &h)
	}
	return holidays, rows.Err()
}
