package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/models"
)

// MismatchRepository is the persistence contract for mismatch records.
// GetByID returns (nil, nil) when no record exists. UpdateExplanation and
// Finalize are conditional single-row updates that only touch records still
// in Pending; they report false when the condition did not hold, which is
// how a concurrent loser observes the state change.
type MismatchRepository interface {
	GetByID(ctx context.Context, id int64) (*models.MismatchRecord, error)
	List(ctx context.Context, filter models.MismatchFilter) ([]*models.MismatchRecord, error)
	UpdateExplanation(ctx context.Context, id int64, text string, at time.Time) (bool, error)
	Finalize(ctx context.Context, id int64, state models.WorkflowState, approverID int64, comment string, at time.Time) (bool, error)
}

// VendorDirectory resolves vendor identity and the manager-of relation.
type VendorDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.Vendor, error)
}

// Service drives the mismatch lifecycle: vendor explanations while a record
// is Pending, and a single manager resolution that finalizes it.
type Service struct {
	mismatches MismatchRepository
	vendors    VendorDirectory
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new lifecycle service
func NewService(mismatches MismatchRepository, vendors VendorDirectory, logger *zap.Logger) *Service {
	return &Service{
		mismatches: mismatches,
		vendors:    vendors,
		logger:     logger,
		now:        time.Now,
	}
}

// GetMismatch returns one record with its structured payload.
func (s *Service) GetMismatch(ctx context.Context, id int64) (*models.MismatchRecord, error) {
	record, err := s.mismatches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get mismatch %d: %w", id, err)
	}
	if record == nil {
		return nil, fmt.Errorf("mismatch %d: %w", id, ErrNotFound)
	}
	return record, nil
}

// ListMismatches returns records matching the filter.
func (s *Service) ListMismatches(ctx context.Context, filter models.MismatchFilter) ([]*models.MismatchRecord, error) {
	records, err := s.mismatches.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list mismatches: %w", err)
	}
	return records, nil
}

// SubmitExplanation records the owning vendor's explanation on a pending
// mismatch. Re-submission while still Pending overwrites; after
// finalization it fails with ErrInvalidState.
func (s *Service) SubmitExplanation(ctx context.Context, mismatchID, vendorID int64, text string) error {
	record, err := s.GetMismatch(ctx, mismatchID)
	if err != nil {
		return err
	}

	if record.VendorID != vendorID {
		return fmt.Errorf("vendor %d does not own mismatch %d: %w", vendorID, mismatchID, ErrForbidden)
	}
	if record.WorkflowState != models.StatePending {
		return fmt.Errorf("mismatch %d is %s: %w", mismatchID, record.WorkflowState, ErrInvalidState)
	}

	updated, err := s.mismatches.UpdateExplanation(ctx, mismatchID, text, s.now())
	if err != nil {
		return fmt.Errorf("update explanation: %w", err)
	}
	if !updated {
		// Finalized between the read and the conditional write.
		return fmt.Errorf("mismatch %d no longer pending: %w", mismatchID, ErrInvalidState)
	}

	s.logger.Info("Explanation submitted",
		zap.Int64("mismatch_id", mismatchID),
		zap.Int64("vendor_id", vendorID))
	return nil
}

// Resolve finalizes a pending mismatch with the manager's decision. A second
// call on an already-finalized record always fails with ErrInvalidState;
// there is no idempotent re-approval.
func (s *Service) Resolve(ctx context.Context, mismatchID, managerID int64, decision Decision, comment string) (*models.MismatchRecord, error) {
	if !decision.IsValid() {
		return nil, fmt.Errorf("unknown decision %q: %w", decision, ErrInvalidState)
	}

	record, err := s.GetMismatch(ctx, mismatchID)
	if err != nil {
		return nil, err
	}

	vendor, err := s.vendors.GetByID(ctx, record.VendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor %d: %w", record.VendorID, err)
	}
	if vendor == nil {
		return nil, fmt.Errorf("vendor %d: %w", record.VendorID, ErrNotFound)
	}
	if vendor.ManagerID != managerID {
		return nil, fmt.Errorf("manager %d does not manage vendor %d: %w", managerID, vendor.ID, ErrForbidden)
	}

	next, err := Next(record.WorkflowState, decision)
	if err != nil {
		return nil, err
	}

	updated, err := s.mismatches.Finalize(ctx, mismatchID, next, managerID, comment, s.now())
	if err != nil {
		return nil, fmt.Errorf("finalize mismatch: %w", err)
	}
	if !updated {
		// Lost the race with a concurrent resolution.
		return nil, fmt.Errorf("mismatch %d no longer pending: %w", mismatchID, ErrInvalidState)
	}

	s.logger.Info("Mismatch resolved",
		zap.Int64("mismatch_id", mismatchID),
		zap.Int64("manager_id", managerID),
		zap.String("decision", decision.String()),
		zap.String("state", next.String()))

	return s.GetMismatch(ctx, mismatchID)
}
