package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/models"
)

// VendorRepository reads the vendor directory. The directory is maintained
// externally; this service only queries it.
type VendorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *sql.DB, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{db: db, logger: logger}
}

// GetByID retrieves a vendor by ID, or (nil, nil) when absent.
func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*models.Vendor, error) {
	query := `
		SELECT id, name, manager_id, active, created_at
		FROM vendors
		WHERE id = ?
	`

	var v models.Vendor
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Name, &v.ManagerID, &v.Active, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get vendor", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return &v, nil
}

// ListActive retrieves all active vendors ordered by ID.
func (r *VendorRepository) ListActive(ctx context.Context) ([]*models.Vendor, error) {
	query := `
		SELECT id, name, manager_id, active, created_at
		FROM vendors
		WHERE active = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active vendors", zap.Error(err))
		return nil, fmt.Errorf("failed to list active vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.ManagerID, &v.Active, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, &v)
	}
	return vendors, rows.Err()
}
