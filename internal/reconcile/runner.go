package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vendorops/attendance/internal/config"
	"github.com/vendorops/attendance/internal/models"
	"github.com/vendorops/attendance/pkg/utils"
)

// Scope narrows a run. Zero values fall back to the configured defaults:
// all active vendors over the trailing window.
type Scope struct {
	VendorIDs []int64
	From      time.Time
	To        time.Time
}

// RunResult summarizes one reconciliation run.
type RunResult struct {
	RunID               string    `json:"run_id"`
	From                string    `json:"from"`
	To                  string    `json:"to"`
	VendorsProcessed    int       `json:"vendors_processed"`
	DatesEvaluated      int       `json:"dates_evaluated"`
	NewRecords          int       `json:"new_records"`
	SkippedExisting     int       `json:"skipped_existing"`
	DiscardedOverBudget int       `json:"discarded_over_budget"`
	SkippedInconsistent int       `json:"skipped_inconsistent"`
	VendorErrors        int       `json:"vendor_errors"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

// Runner drives a full reconciliation run: it iterates vendors and dates,
// invokes the engine, and persists accepted findings. Acceptance is the one
// cross-vendor serialization point: the per-category budget counters and the
// check-and-insert against the store happen under a single mutex so the
// per-run cap holds under concurrent vendor processing.
type Runner struct {
	cfg        config.ReconcileConfig
	thresholds Thresholds
	vendors    VendorSource
	statuses   StatusReader
	swipes     SwipeReader
	approvals  ApprovalSource
	holidays   HolidaySource
	store      MismatchStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunner validates the rule thresholds and builds a runner.
func NewRunner(
	cfg config.ReconcileConfig,
	vendors VendorSource,
	statuses StatusReader,
	swipes SwipeReader,
	approvals ApprovalSource,
	holidays HolidaySource,
	store MismatchStore,
	logger *zap.Logger,
) (*Runner, error) {
	thresholds, err := ThresholdsFromConfig(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("parse rule thresholds: %w", err)
	}
	return &Runner{
		cfg:        cfg,
		thresholds: thresholds,
		vendors:    vendors,
		statuses:   statuses,
		swipes:     swipes,
		approvals:  approvals,
		holidays:   holidays,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// budgeter holds the mutable cross-vendor run state.
type budgeter struct {
	mu       sync.Mutex
	counters map[models.MismatchCategory]int
	budget   int
	result   *RunResult
}

// Run executes one reconciliation batch. Per-vendor and per-date failures
// are isolated and counted; only context cancellation aborts the run.
// Re-runs over the same range are idempotent.
func (r *Runner) Run(ctx context.Context, scope Scope) (*RunResult, error) {
	runID := uuid.NewString()
	started := r.now()

	from, to := r.resolveWindow(scope)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid window: %s after %s", models.DateKey(from), models.DateKey(to))
	}

	vendors, err := r.resolveVendors(ctx, scope)
	if err != nil {
		return nil, err
	}

	holidays, err := r.holidays.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	calendar := NewCalendar(r.cfg.WeekendDays, holidays)
	engine := NewEngine(r.thresholds, calendar, r.logger)

	result := &RunResult{
		RunID:     runID,
		From:      models.DateKey(from),
		To:        models.DateKey(to),
		StartedAt: started,
	}
	b := &budgeter{
		counters: make(map[models.MismatchCategory]int),
		budget:   r.cfg.CategoryBudget,
		result:   result,
	}

	r.logger.Info("Reconciliation run started",
		zap.String("run_id", runID),
		zap.String("from", result.From),
		zap.String("to", result.To),
		zap.Int("vendors", len(vendors)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, vendor := range vendors {
		vendor := vendor
		g.Go(func() error {
			if err := r.runVendor(gctx, engine, b, runID, vendor, from, to); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				// Isolate vendor failures from the rest of the batch.
				r.logger.Error("Vendor reconciliation failed",
					zap.String("run_id", runID),
					zap.Int64("vendor_id", vendor.ID),
					zap.Error(err))
				b.mu.Lock()
				b.result.VendorErrors++
				b.mu.Unlock()
				return nil
			}
			b.mu.Lock()
			b.result.VendorsProcessed++
			b.mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.FinishedAt = r.now()
	r.logger.Info("Reconciliation run finished",
		zap.String("run_id", runID),
		zap.Int("new_records", result.NewRecords),
		zap.Int("skipped_existing", result.SkippedExisting),
		zap.Int("discarded_over_budget", result.DiscardedOverBudget),
		zap.Int("skipped_inconsistent", result.SkippedInconsistent),
		zap.Int("vendor_errors", result.VendorErrors))
	return result, nil
}

// runVendor evaluates every date in the window for one vendor.
func (r *Runner) runVendor(
	ctx context.Context,
	engine *Engine,
	b *budgeter,
	runID string,
	vendor *models.Vendor,
	from, to time.Time,
) error {
	statuses, err := r.statuses.ListByVendorRange(ctx, vendor.ID, from, to)
	if err != nil {
		return fmt.Errorf("load statuses: %w", err)
	}
	swipes, err := r.swipes.ListByVendorRange(ctx, vendor.ID, from, to)
	if err != nil {
		return fmt.Errorf("load swipes: %w", err)
	}
	windows, err := r.approvals.ListWindows(ctx, vendor.ID, from)
	if err != nil {
		return fmt.Errorf("load approval windows: %w", err)
	}

	statusByDate := make(map[string]*models.DailyStatusRecord, len(statuses))
	for _, s := range statuses {
		statusByDate[models.DateKey(s.Date)] = s
	}
	swipeByDate := make(map[string]*models.SwipeRecord, len(swipes))
	for _, s := range swipes {
		swipeByDate[models.DateKey(s.Date)] = s
	}
	approvalIndex := BuildApprovalIndex(windows, from)

	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := models.DateKey(date)
		in := EvalInput{
			VendorID:  vendor.ID,
			Date:      date,
			Status:    statusByDate[key],
			Swipe:     swipeByDate[key],
			Approvals: approvalIndex,
		}

		b.mu.Lock()
		b.result.DatesEvaluated++
		b.mu.Unlock()

		finding, err := engine.Evaluate(in)
		if err != nil {
			if errors.Is(err, ErrDataInconsistency) {
				r.logger.Warn("Skipping inconsistent date",
					zap.String("run_id", runID),
					zap.Int64("vendor_id", vendor.ID),
					zap.String("date", key),
					zap.Error(err))
				b.mu.Lock()
				b.result.SkippedInconsistent++
				b.mu.Unlock()
				continue
			}
			return fmt.Errorf("evaluate %s: %w", key, err)
		}
		if finding == nil {
			continue
		}

		if err := r.accept(ctx, b, runID, finding, in); err != nil {
			return fmt.Errorf("accept finding %s: %w", key, err)
		}
	}
	return nil
}

// accept applies the budgeter policy to one candidate finding: skip if a
// record already exists for the (vendor, date), then skip and count if the
// category budget is exhausted, else persist with state Pending. Runs under
// the budgeter mutex.
func (r *Runner) accept(ctx context.Context, b *budgeter, runID string, finding *models.Finding, in EvalInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	exists, err := r.store.ExistsForVendorDate(ctx, finding.VendorID, finding.Date)
	if err != nil {
		return err
	}
	if exists {
		b.result.SkippedExisting++
		return nil
	}

	if b.counters[finding.Category] >= b.budget {
		// Deliberate non-completeness: over-budget candidates are
		// discarded in encounter order and picked up by a later run.
		b.result.DiscardedOverBudget++
		r.logger.Debug("Category budget exhausted, discarding candidate",
			zap.String("run_id", runID),
			zap.Int64("vendor_id", finding.VendorID),
			zap.String("date", models.DateKey(finding.Date)),
			zap.String("category", finding.Category.String()))
		return nil
	}

	record := &models.MismatchRecord{
		VendorID:      finding.VendorID,
		Date:          finding.Date,
		SwipePresence: models.PresenceAbsent,
		Category:      finding.Category,
		Severity:      finding.Severity,
		Payload:       finding.Payload,
		WorkflowState: models.StatePending,
		RunID:         runID,
	}
	if in.Status != nil {
		record.DeclaredKind = in.Status.Kind
	}
	if in.Swipe != nil {
		record.SwipePresence = in.Swipe.Presence
	}

	inserted, err := r.store.Insert(ctx, record)
	if err != nil {
		return err
	}
	if !inserted {
		// Lost a race with a concurrent run; same outcome as the
		// existence check above.
		b.result.SkippedExisting++
		return nil
	}

	b.counters[finding.Category]++
	b.result.NewRecords++
	r.logger.Info("Mismatch recorded",
		zap.String("run_id", runID),
		zap.Int64("vendor_id", finding.VendorID),
		zap.String("date", models.DateKey(finding.Date)),
		zap.String("category", finding.Category.String()),
		zap.String("severity", finding.Severity.String()))
	return nil
}

// resolveWindow applies the configured trailing window when the scope does
// not pin explicit bounds.
func (r *Runner) resolveWindow(scope Scope) (time.Time, time.Time) {
	to := scope.To
	if to.IsZero() {
		to = utils.Midnight(r.now())
	} else {
		to = utils.Midnight(to)
	}
	from := scope.From
	if from.IsZero() {
		from = to.AddDate(0, 0, -(r.cfg.WindowDays - 1))
	} else {
		from = utils.Midnight(from)
	}
	return from, to
}

// resolveVendors expands the scope into vendor rows.
func (r *Runner) resolveVendors(ctx context.Context, scope Scope) ([]*models.Vendor, error) {
	if len(scope.VendorIDs) == 0 {
		vendors, err := r.vendors.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active vendors: %w", err)
		}
		return vendors, nil
	}

	vendors := make([]*models.Vendor, 0, len(scope.VendorIDs))
	for _, id := range scope.VendorIDs {
		vendor, err := r.vendors.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get vendor %d: %w", id, err)
		}
		if vendor == nil {
			return nil, fmt.Errorf("vendor %d not found", id)
		}
		vendors = append(vendors, vendor)
	}
	return vendors, nil
}
