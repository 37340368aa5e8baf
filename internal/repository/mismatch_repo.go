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

// MismatchRepository persists mismatch records and owns their workflow
// state. The (vendor_id, date) pair is unique for all time; inserts are
// check-and-insert primitives backed by that index.
type MismatchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMismatchRepository creates a new mismatch repository
func NewMismatchRepository(db *sql.DB, logger *zap.Logger) *MismatchRepository {
	return &MismatchRepository{db: db, logger: logger}
}

// ExistsForVendorDate reports whether a record already exists for the
// (vendor, date) pair.
func (r *MismatchRepository) ExistsForVendorDate(ctx context.Context, vendorID int64, date time.Time) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM mismatch_records WHERE vendor_id = ? AND date = ?",
		vendorID, models.DateKey(date),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check mismatch existence: %w", err)
	}
	return true, nil
}

// Insert persists a new record in state Pending. Returns false without
// error when a record already exists for the same (vendor, date); the
// unique index makes this safe against concurrent runs.
func (r *MismatchRepository) Insert(ctx context.Context, record *models.MismatchRecord) (bool, error) {
	payload, err := models.MarshalPayload(record.Payload)
	if err != nil {
		return false, err
	}

	query := `
		INSERT OR IGNORE INTO mismatch_records (
			vendor_id, date, declared_kind, swipe_presence,
			category, severity, payload, workflow_state, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.VendorID,
		models.DateKey(record.Date),
		string(record.DeclaredKind),
		string(record.SwipePresence),
		string(record.Category),
		string(record.Severity),
		payload,
		string(record.WorkflowState),
		record.RunID,
	)
	if err != nil {
		r.logger.Error("Failed to insert mismatch record",
			zap.Int64("vendor_id", record.VendorID),
			zap.String("date", models.DateKey(record.Date)),
			zap.Error(err))
		return false, fmt.Errorf("failed to insert mismatch record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return true, nil
}

const mismatchColumns = `
	id, vendor_id, date, declared_kind, swipe_presence,
	category, severity, payload, explanation, explained_at,
	workflow_state, manager_comment, approver_id, resolved_at,
	run_id, created_at, updated_at
`

// GetByID retrieves a record by ID, or (nil, nil) when absent.
func (r *MismatchRepository) GetByID(ctx context.Context, id int64) (*models.MismatchRecord, error) {
	query := "SELECT " + mismatchColumns + " FROM mismatch_records WHERE id = ?"

	record, err := scanMismatch(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get mismatch record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get mismatch record: %w", err)
	}
	return record, nil
}

// List retrieves records matching the filter, newest dates first.
func (r *MismatchRepository) List(ctx context.Context, filter models.MismatchFilter) ([]*models.MismatchRecord, error) {
	query := "SELECT " + mismatchColumns + " FROM mismatch_records WHERE 1=1"
	args := make([]interface{}, 0, 5)

	if filter.VendorID != nil {
		query += " AND vendor_id = ?"
		args = append(args, *filter.VendorID)
	}
	if filter.State != nil {
		query += " AND workflow_state = ?"
		args = append(args, string(*filter.State))
	}
	if filter.Category != nil {
		query += " AND category = ?"
		args = append(args, string(*filter.Category))
	}

	query += " ORDER BY date DESC, vendor_id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list mismatch records", zap.Error(err))
		return nil, fmt.Errorf("failed to list mismatch records: %w", err)
	}
	defer rows.Close()

	var records []*models.MismatchRecord
	for rows.Next() {
		record, err := scanMismatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mismatch record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateExplanation overwrites the vendor explanation on a record that is
// still Pending. Returns false when the record was not Pending (or absent).
func (r *MismatchRepository) UpdateExplanation(ctx context.Context, id int64, text string, at time.Time) (bool, error) {
	query := `
		UPDATE mismatch_records
		SET explanation = ?, explained_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND workflow_state = ?
	`

	result, err := r.db.ExecContext(ctx, query, text, at, id, string(models.StatePending))
	if err != nil {
		r.logger.Error("Failed to update explanation", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update explanation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Finalize moves a Pending record to a terminal state with the approver's
// identity and comment. The conditional WHERE is the compare-and-swap that
// makes a second concurrent resolution observe false.
func (r *MismatchRepository) Finalize(ctx context.Context, id int64, state models.WorkflowState, approverID int64, comment string, at time.Time) (bool, error) {
	query := `
		UPDATE mismatch_records
		SET workflow_state = ?, approver_id = ?, manager_comment = ?,
			resolved_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND workflow_state = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(state), approverID, comment, at, id, string(models.StatePending))
	if err != nil {
		r.logger.Error("Failed to finalize mismatch record", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to finalize mismatch record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMismatch(s scanner) (*models.MismatchRecord, error) {
	var rec models.MismatchRecord
	var dateStr, payload string
	var declaredKind sql.NullString
	var explanation, comment sql.NullString
	var explainedAt, resolvedAt sql.NullTime
	var approverID sql.NullInt64

	err := s.Scan(
		&rec.ID, &rec.VendorID, &dateStr, &declaredKind, &rec.SwipePresence,
		&rec.Category, &rec.Severity, &payload, &explanation, &explainedAt,
		&rec.WorkflowState, &comment, &approverID, &resolvedAt,
		&rec.RunID, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.Date, err = utils.ParseDate(dateStr); err != nil {
		return nil, err
	}
	if rec.Payload, err = models.UnmarshalPayload(payload); err != nil {
		return nil, err
	}
	rec.DeclaredKind = models.AttendanceKind(declaredKind.String)
	rec.Explanation = explanation.String
	rec.ManagerComment = comment.String
	rec.ApproverID = approverID.Int64
	if explainedAt.Valid {
		rec.ExplainedAt = &explainedAt.Time
	}
	if resolvedAt.Valid {
		rec.ResolvedAt = &resolvedAt.Time
	}
	return &rec, nil
}
