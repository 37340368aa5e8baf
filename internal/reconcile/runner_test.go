package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/config"
	"github.com/vendorops/attendance/internal/models"
)

// In-memory fakes for the runner's data sources.

type fakeVendorSource struct {
	vendors map[int64]*models.Vendor
}

func (f *fakeVendorSource) GetByID(_ context.Context, id int64) (*models.Vendor, error) {
	return f.vendors[id], nil
}

func (f *fakeVendorSource) ListActive(_ context.Context) ([]*models.Vendor, error) {
	var out []*models.Vendor
	for _, v := range f.vendors {
		if v.Active {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeStatusReader struct {
	records map[int64][]*models.DailyStatusRecord
	failFor map[int64]bool
}

func (f *fakeStatusReader) ListByVendorRange(_ context.Context, vendorID int64, _, _ time.Time) ([]*models.DailyStatusRecord, error) {
	if f.failFor[vendorID] {
		return nil, fmt.Errorf("status source unavailable for vendor %d", vendorID)
	}
	return f.records[vendorID], nil
}

type fakeSwipeReader struct {
	records map[int64][]*models.SwipeRecord
}

func (f *fakeSwipeReader) ListByVendorRange(_ context.Context, vendorID int64, _, _ time.Time) ([]*models.SwipeRecord, error) {
	return f.records[vendorID], nil
}

type fakeApprovalSource struct {
	windows map[int64][]*models.ApprovalWindow
}

func (f *fakeApprovalSource) ListWindows(_ context.Context, vendorID int64, _ time.Time) ([]*models.ApprovalWindow, error) {
	return f.windows[vendorID], nil
}

type fakeHolidaySource struct {
	holidays []*models.Holiday
}

func (f *fakeHolidaySource) ListRange(_ context.Context, _, _ time.Time) ([]*models.Holiday, error) {
	return f.holidays, nil
}

type fakeMismatchStore struct {
	mu      sync.Mutex
	records map[string]*models.MismatchRecord
}

func newFakeMismatchStore() *fakeMismatchStore {
	return &fakeMismatchStore{records: make(map[string]*models.MismatchRecord)}
}

func storeKey(vendorID int64, date time.Time) string {
	return fmt.Sprintf("%d|%s", vendorID, models.DateKey(date))
}

func (f *fakeMismatchStore) ExistsForVendorDate(_ context.Context, vendorID int64, date time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[storeKey(vendorID, date)]
	return ok, nil
}

func (f *fakeMismatchStore) Insert(_ context.Context, record *models.MismatchRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := storeKey(record.VendorID, record.Date)
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = record
	return true, nil
}

func (f *fakeMismatchStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func testReconcileConfig() config.ReconcileConfig {
	return config.ReconcileConfig{
		WindowDays:     60,
		CategoryBudget: 2,
		Workers:        2,
		WeekendDays:    []int{0, 6},
		Rules: config.RulesConfig{
			LateArrivalAfter:     "11:00",
			EarlyDepartureBefore: "15:00",
			AMWindowStart:        "09:00",
			AMWindowEnd:          "13:00",
			PMWindowStart:        "14:00",
			PMWindowEnd:          "18:00",
			StandardHours:        8,
			OvertimeTolerance:    0.5,
		},
	}
}

type runnerFixture struct {
	vendors   *fakeVendorSource
	statuses  *fakeStatusReader
	swipes    *fakeSwipeReader
	approvals *fakeApprovalSource
	holidays  *fakeHolidaySource
	store     *fakeMismatchStore
}

func newRunnerFixture() *runnerFixture {
	return &runnerFixture{
		vendors:   &fakeVendorSource{vendors: make(map[int64]*models.Vendor)},
		statuses:  &fakeStatusReader{records: make(map[int64][]*models.DailyStatusRecord), failFor: make(map[int64]bool)},
		swipes:    &fakeSwipeReader{records: make(map[int64][]*models.SwipeRecord)},
		approvals: &fakeApprovalSource{windows: make(map[int64][]*models.ApprovalWindow)},
		holidays:  &fakeHolidaySource{},
		store:     newFakeMismatchStore(),
	}
}

func (fx *runnerFixture) newRunner(t *testing.T, cfg config.ReconcileConfig) *Runner {
	t.Helper()
	runner, err := NewRunner(cfg, fx.vendors, fx.statuses, fx.swipes, fx.approvals, fx.holidays, fx.store, zap.NewNop())
	require.NoError(t, err)
	return runner
}

func (fx *runnerFixture) addVendor(id int64) {
	fx.vendors.vendors[id] = &models.Vendor{ID: id, Name: fmt.Sprintf("vendor-%d", id), ManagerID: 100, Active: true}
}

// presenceOn records a present swipe with no submission, which produces a
// MissingSubmission candidate on working days.
func (fx *runnerFixture) presenceOn(vendorID int64, date time.Time) {
	fx.swipes.records[vendorID] = append(fx.swipes.records[vendorID],
		presentSwipe(vendorID, date, 9, 0, 18, 0))
}

// 2025-03-03 is a Monday; the week runs through Friday 2025-03-07.
var (
	monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	friday = time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
)

func TestRunner_PersistsFindingsWithSnapshots(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	fx.statuses.records[1] = []*models.DailyStatusRecord{
		approvedStatus(1, monday, models.KindWfhFull),
	}
	fx.swipes.records[1] = []*models.SwipeRecord{
		presentSwipe(1, monday, 9, 30, 18, 0),
	}
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)

	assert.Equal(t, 1, result.VendorsProcessed)
	assert.Equal(t, 5, result.DatesEvaluated)
	assert.Equal(t, 1, result.NewRecords)
	assert.Equal(t, 0, result.VendorErrors)
	require.Equal(t, 1, fx.store.count())

	record := fx.store.records[storeKey(1, monday)]
	require.NotNil(t, record)
	assert.Equal(t, models.CategoryStatusSwipeConflict, record.Category)
	assert.Equal(t, models.SeverityHigh, record.Severity)
	assert.Equal(t, models.KindWfhFull, record.DeclaredKind)
	assert.Equal(t, models.PresencePresent, record.SwipePresence)
	assert.Equal(t, models.StatePending, record.WorkflowState)
	assert.Equal(t, result.RunID, record.RunID)
}

func TestRunner_RerunIsIdempotent(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	fx.presenceOn(1, monday)
	fx.presenceOn(1, monday.AddDate(0, 0, 1))
	runner := fx.newRunner(t, testReconcileConfig())

	first, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewRecords)

	second, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewRecords)
	assert.Equal(t, 2, second.SkippedExisting)
	assert.Equal(t, 2, fx.store.count())
}

func TestRunner_CategoryBudgetCapsNewRecords(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	// Five working days, each a MissingSubmission candidate; budget is 2.
	for d := monday; !d.After(friday); d = d.AddDate(0, 0, 1) {
		fx.presenceOn(1, d)
	}
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewRecords)
	assert.Equal(t, 3, result.DiscardedOverBudget)
	assert.Equal(t, 2, fx.store.count())

	// A later run picks up the discarded dates, again up to the budget.
	next, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)
	assert.Equal(t, 2, next.NewRecords)
	assert.Equal(t, 2, next.SkippedExisting)
	assert.Equal(t, 1, next.DiscardedOverBudget)
	assert.Equal(t, 4, fx.store.count())
}

func TestRunner_BudgetIsPerCategory(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	// Three MissingSubmission candidates and one StatusSwipeConflict.
	fx.presenceOn(1, monday)
	fx.presenceOn(1, monday.AddDate(0, 0, 1))
	fx.presenceOn(1, monday.AddDate(0, 0, 2))
	conflictDay := monday.AddDate(0, 0, 3)
	fx.statuses.records[1] = []*models.DailyStatusRecord{
		approvedStatus(1, conflictDay, models.KindWfhFull),
	}
	fx.presenceOn(1, conflictDay)
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)

	// The conflict has its own budget; only the third MissingSubmission
	// candidate is discarded.
	assert.Equal(t, 3, result.NewRecords)
	assert.Equal(t, 1, result.DiscardedOverBudget)
}

func TestRunner_NonWorkingDaysNeverPersisted(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	sat := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	fx.presenceOn(1, sat)
	fx.presenceOn(1, sun)
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{From: sat, To: sun})
	require.NoError(t, err)

	assert.Equal(t, 2, result.DatesEvaluated)
	assert.Equal(t, 0, result.NewRecords)
	assert.Equal(t, 0, fx.store.count())
}

func TestRunner_HolidayExemption(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	fx.holidays.holidays = []*models.Holiday{{Date: monday, Name: "Founders Day"}}
	fx.presenceOn(1, monday)
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{From: monday, To: monday})
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewRecords)
}

func TestRunner_VendorErrorIsolation(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	fx.addVendor(2)
	fx.statuses.failFor[1] = true
	fx.presenceOn(2, monday)
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)

	assert.Equal(t, 1, result.VendorErrors)
	assert.Equal(t, 1, result.VendorsProcessed)
	assert.Equal(t, 1, result.NewRecords)
}

func TestRunner_InconsistentDateSkippedNotFatal(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	fx.statuses.records[1] = []*models.DailyStatusRecord{
		{
			VendorID:       1,
			Date:           monday,
			Kind:           models.KindWfhHalf,
			HalfAM:         models.HalfDayKind("SICK"),
			HalfPM:         models.HalfInOffice,
			ApprovalStatus: models.ApprovalApproved,
		},
	}
	fx.presenceOn(1, monday.AddDate(0, 0, 1))
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{From: monday, To: friday})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SkippedInconsistent)
	assert.Equal(t, 1, result.NewRecords)
	assert.Equal(t, 1, result.VendorsProcessed)
}

func TestRunner_ExplicitVendorScope(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	fx.addVendor(2)
	fx.presenceOn(1, monday)
	fx.presenceOn(2, monday)
	runner := fx.newRunner(t, testReconcileConfig())

	result, err := runner.Run(context.Background(), Scope{VendorIDs: []int64{2}, From: monday, To: friday})
	require.NoError(t, err)

	assert.Equal(t, 1, result.VendorsProcessed)
	require.Equal(t, 1, fx.store.count())
	assert.NotNil(t, fx.store.records[storeKey(2, monday)])
}

func TestRunner_UnknownVendorFailsTheRun(t *testing.T) {
	fx := newRunnerFixture()
	runner := fx.newRunner(t, testReconcileConfig())

	_, err := runner.Run(context.Background(), Scope{VendorIDs: []int64{99}, From: monday, To: friday})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor 99 not found")
}

func TestRunner_InvalidWindowRejected(t *testing.T) {
	fx := newRunnerFixture()
	runner := fx.newRunner(t, testReconcileConfig())

	_, err := runner.Run(context.Background(), Scope{From: friday, To: monday})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid window")
}

func TestRunner_DefaultWindowIsTrailing(t *testing.T) {
	fx := newRunnerFixture()
	runner := fx.newRunner(t, testReconcileConfig())
	runner.now = func() time.Time {
		return time.Date(2025, 3, 7, 15, 30, 0, 0, time.UTC)
	}

	result, err := runner.Run(context.Background(), Scope{})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-07", result.To)
	assert.Equal(t, "2025-01-07", result.From) // 60 days inclusive
}

func TestRunner_ContextCancellationAborts(t *testing.T) {
	fx := newRunnerFixture()
	fx.addVendor(1)
	fx.presenceOn(1, monday)
	runner := fx.newRunner(t, testReconcileConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, Scope{From: monday, To: friday})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
