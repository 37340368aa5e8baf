package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/models"
	"github.com/vendorops/attendance/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, zap.NewNop())
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	_, err = db.Exec("INSERT INTO vendors (id, name, manager_id, active) VALUES (1, 'vendor-one', 100, 1)")
	require.NoError(t, err)
	return db
}

func testRecord(vendorID int64, date time.Time) *models.MismatchRecord {
	return &models.MismatchRecord{
		VendorID:      vendorID,
		Date:          date,
		DeclaredKind:  models.KindWfhFull,
		SwipePresence: models.PresencePresent,
		Category:      models.CategoryStatusSwipeConflict,
		Severity:      models.SeverityHigh,
		Payload: models.FindingPayload{
			Category: models.CategoryStatusSwipeConflict,
			FullDay: &models.SubFinding{
				Reason:   "WFH status submitted but swipe record shows office presence",
				Severity: models.SeverityHigh,
			},
		},
		WorkflowState: models.StatePending,
		RunID:         "run-1",
	}
}

func TestMismatchRepository_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewMismatchRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	inserted, err := repo.Insert(ctx, testRecord(1, date))
	require.NoError(t, err)
	require.True(t, inserted)

	exists, err := repo.ExistsForVendorDate(ctx, 1, date)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForVendorDate(ctx, 1, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, exists)

	records, err := repo.List(ctx, models.MismatchFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got, err := repo.GetByID(ctx, records[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.VendorID)
	assert.Equal(t, "2025-03-03", models.DateKey(got.Date))
	assert.Equal(t, models.KindWfhFull, got.DeclaredKind)
	assert.Equal(t, models.StatePending, got.WorkflowState)
	require.NotNil(t, got.Payload.FullDay)
	assert.Contains(t, got.Payload.FullDay.Reason, "office presence")
}

func TestMismatchRepository_DuplicateInsertIgnored(t *testing.T) {
	db := newTestDB(t)
	repo := NewMismatchRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	inserted, err := repo.Insert(ctx, testRecord(1, date))
	require.NoError(t, err)
	require.True(t, inserted)

	// Same (vendor, date): the unique index absorbs it without error.
	inserted, err = repo.Insert(ctx, testRecord(1, date))
	require.NoError(t, err)
	assert.False(t, inserted)

	records, err := repo.List(ctx, models.MismatchFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMismatchRepository_GetByIDAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewMismatchRepository(db.DB, zap.NewNop())

	got, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMismatchRepository_ExplanationAndFinalize(t *testing.T) {
	db := newTestDB(t)
	repo := NewMismatchRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	record := testRecord(1, date)
	_, err := repo.Insert(ctx, record)
	require.NoError(t, err)

	updated, err := repo.UpdateExplanation(ctx, record.ID, "badge reader issue", now)
	require.NoError(t, err)
	assert.True(t, updated)

	finalized, err := repo.Finalize(ctx, record.ID, models.StateApproved, 100, "ok", now)
	require.NoError(t, err)
	assert.True(t, finalized)

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, got.WorkflowState)
	assert.Equal(t, int64(100), got.ApproverID)
	assert.Equal(t, "ok", got.ManagerComment)
	assert.Equal(t, "badge reader issue", got.Explanation)
	require.NotNil(t, got.ResolvedAt)

	// The conditional update only touches Pending rows.
	finalized, err = repo.Finalize(ctx, record.ID, models.StateRejected, 100, "again", now)
	require.NoError(t, err)
	assert.False(t, finalized)

	updated, err = repo.UpdateExplanation(ctx, record.ID, "too late", now)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestMismatchRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewMismatchRepository(db.DB, zap.NewNop())
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	first := testRecord(1, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	second := testRecord(1, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	second.Category = models.CategoryMissingSubmission
	second.DeclaredKind = ""
	_, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, second)
	require.NoError(t, err)

	_, err = repo.Finalize(ctx, first.ID, models.StateApproved, 100, "", now)
	require.NoError(t, err)

	pending := models.StatePending
	records, err := repo.List(ctx, models.MismatchFilter{State: &pending})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.ID, records[0].ID)

	category := models.CategoryMissingSubmission
	records, err = repo.List(ctx, models.MismatchFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceKind(""), records[0].DeclaredKind)

	vendorID := int64(2)
	records, err = repo.List(ctx, models.MismatchFilter{VendorID: &vendorID})
	require.NoError(t, err)
	assert.Empty(t, records)

	// Newest dates first.
	records, err = repo.List(ctx, models.MismatchFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2025-03-04", models.DateKey(records[0].Date))
}
