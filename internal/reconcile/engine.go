package reconcile

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/config"
	"github.com/vendorops/attendance/internal/models"
	"github.com/vendorops/attendance/pkg/utils"
)

// ErrDataInconsistency marks a vendor/date whose half-day sub-kind
// combination cannot be classified. The runner logs it and skips the date;
// it never aborts a batch.
var ErrDataInconsistency = errors.New("data inconsistency")

// Thresholds are the parsed engine rule thresholds. Clock values are
// minutes since midnight.
type Thresholds struct {
	LateArrivalAfter     int
	EarlyDepartureBefore int
	AMStart, AMEnd       int
	PMStart, PMEnd       int
	StandardHours        float64
	OvertimeTolerance    float64
}

// ThresholdsFromConfig parses the configured "HH:MM" clock values.
func ThresholdsFromConfig(rc config.RulesConfig) (Thresholds, error) {
	var t Thresholds
	var err error
	if t.LateArrivalAfter, err = utils.ParseClock(rc.LateArrivalAfter); err != nil {
		return t, err
	}
	if t.EarlyDepartureBefore, err = utils.ParseClock(rc.EarlyDepartureBefore); err != nil {
		return t, err
	}
	if t.AMStart, err = utils.ParseClock(rc.AMWindowStart); err != nil {
		return t, err
	}
	if t.AMEnd, err = utils.ParseClock(rc.AMWindowEnd); err != nil {
		return t, err
	}
	if t.PMStart, err = utils.ParseClock(rc.PMWindowStart); err != nil {
		return t, err
	}
	if t.PMEnd, err = utils.ParseClock(rc.PMWindowEnd); err != nil {
		return t, err
	}
	t.StandardHours = rc.StandardHours
	t.OvertimeTolerance = rc.OvertimeTolerance
	return t, nil
}

// EvalInput is everything the engine needs to judge one vendor/date.
// Status and Swipe may be nil; a missing swipe means absent presence.
type EvalInput struct {
	VendorID  int64
	Date      time.Time
	Status    *models.DailyStatusRecord
	Swipe     *models.SwipeRecord
	Approvals *ApprovalIndex
}

// Engine evaluates the reconciliation rules for a single vendor/date.
// Stateless apart from its thresholds and calendar; safe for concurrent use.
type Engine struct {
	thresholds Thresholds
	calendar   *Calendar
	logger     *zap.Logger
}

// NewEngine creates an engine bound to a run's calendar.
func NewEngine(thresholds Thresholds, calendar *Calendar, logger *zap.Logger) *Engine {
	return &Engine{thresholds: thresholds, calendar: calendar, logger: logger}
}

// rule is one step of the ordered rule chain. handled=true stops the chain,
// whether or not a finding was produced.
type rule struct {
	name string
	eval func(e *Engine, in EvalInput) (finding *models.Finding, handled bool, err error)
}

// The rule order is load-bearing: first match wins, at most one finding per
// vendor/date. The unapproved-status gate applies to the hour checks
// (overtime, time validation) only; status-vs-swipe conflict detection runs
// for unapproved submissions too, so that approval of the whole-day record
// can suppress approval-window findings further down.
var rules = []rule{
	{"non_working_day", (*Engine).ruleNonWorkingDay},
	{"missing_submission", (*Engine).ruleMissingSubmission},
	{"no_signal", (*Engine).ruleNoSignal},
	{"overtime_conflict", (*Engine).ruleOvertimeConflict},
	{"time_validation", (*Engine).ruleTimeValidation},
	{"half_day_conflict", (*Engine).ruleHalfDayConflict},
	{"full_day_conflict", (*Engine).ruleFullDayConflict},
}

// Evaluate runs the rule chain for one vendor/date and returns at most one
// finding. A nil finding with nil error means the date is clean.
func (e *Engine) Evaluate(in EvalInput) (*models.Finding, error) {
	for _, r := range rules {
		finding, handled, err := r.eval(e, in)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.name, err)
		}
		if handled {
			if finding != nil {
				e.logger.Debug("Rule fired",
					zap.String("rule", r.name),
					zap.Int64("vendor_id", in.VendorID),
					zap.String("date", models.DateKey(in.Date)),
					zap.String("category", finding.Category.String()))
			}
			return finding, nil
		}
	}
	return nil, nil
}

// Rule 1: non-working days are exempt unconditionally.
func (e *Engine) ruleNonWorkingDay(in EvalInput) (*models.Finding, bool, error) {
	if nonWorking, _ := e.calendar.IsNonWorking(in.Date); nonWorking {
		return nil, true, nil
	}
	return nil, false, nil
}

// Rule 2: swipe presence without any submission.
func (e *Engine) ruleMissingSubmission(in EvalInput) (*models.Finding, bool, error) {
	if in.Status != nil {
		return nil, false, nil
	}
	if !swipePresent(in.Swipe) {
		return nil, false, nil
	}
	sub := &models.SubFinding{
		Reason:         "No attendance submission but swipe record shows office presence",
		Severity:       models.SeverityHigh,
		Expected:       "daily status submitted",
		Actual:         "swipe presence with no submission",
		Recommendation: "Submit the missing daily status for this date",
	}
	return e.newFinding(in, models.CategoryMissingSubmission, sub), true, nil
}

// Rule 3: no submission and no presence signal is not a mismatch.
func (e *Engine) ruleNoSignal(in EvalInput) (*models.Finding, bool, error) {
	if in.Status == nil {
		return nil, true, nil
	}
	return nil, false, nil
}

// Rule 5: declared extra hours vs swipe-derived extra hours. Gated on an
// approved submission.
func (e *Engine) ruleOvertimeConflict(in EvalInput) (*models.Finding, bool, error) {
	if in.Status.ApprovalStatus != models.ApprovalApproved {
		return nil, false, nil
	}
	declaredExtra := math.Max(0, in.Status.TotalHours-e.thresholds.StandardHours)
	swipeExtra := 0.0
	if in.Swipe != nil {
		swipeExtra = in.Swipe.ExtraHours
	}
	if math.Abs(swipeExtra-declaredExtra) <= e.thresholds.OvertimeTolerance {
		return nil, false, nil
	}
	sub := &models.SubFinding{
		Reason: fmt.Sprintf("Declared extra hours %.1f do not match swipe extra hours %.1f",
			declaredExtra, swipeExtra),
		Severity:       models.SeverityMedium,
		Expected:       fmt.Sprintf("extra hours %.1f", declaredExtra),
		Actual:         fmt.Sprintf("swipe extra hours %.1f", swipeExtra),
		Recommendation: "Correct the declared total hours or raise a swipe correction",
	}
	return e.newFinding(in, models.CategoryOvertimeConflict, sub), true, nil
}

// Rule 6: early departure takes precedence over late arrival; at most one
// time-validation finding per date. Gated on an approved submission, and only
// full in-office days carry the standard arrival/departure expectations; a
// half-day schedule legitimately starts late or leaves early.
func (e *Engine) ruleTimeValidation(in EvalInput) (*models.Finding, bool, error) {
	if in.Status.ApprovalStatus != models.ApprovalApproved {
		return nil, false, nil
	}
	if in.Status.Kind != models.KindInOfficeFull {
		return nil, false, nil
	}
	if !swipePresent(in.Swipe) {
		return nil, false, nil
	}

	if in.Swipe.Logout != nil {
		logoutMin := utils.MinuteOfDay(*in.Swipe.Logout)
		if logoutMin < e.thresholds.EarlyDepartureBefore {
			sub := &models.SubFinding{
				Reason: fmt.Sprintf("Early departure: logout at %s is before %s",
					utils.FormatClock(logoutMin), utils.FormatClock(e.thresholds.EarlyDepartureBefore)),
				Severity:       models.SeverityMedium,
				Expected:       fmt.Sprintf("logout at or after %s", utils.FormatClock(e.thresholds.EarlyDepartureBefore)),
				Actual:         fmt.Sprintf("logout at %s", utils.FormatClock(logoutMin)),
				Recommendation: "Provide a reason for the early departure or correct the swipe record",
			}
			return e.newFinding(in, models.CategoryTimeValidation, sub), true, nil
		}
	}

	if in.Swipe.Login != nil {
		loginMin := utils.MinuteOfDay(*in.Swipe.Login)
		if loginMin > e.thresholds.LateArrivalAfter {
			sub := &models.SubFinding{
				Reason: fmt.Sprintf("Late arrival: login at %s is after %s",
					utils.FormatClock(loginMin), utils.FormatClock(e.thresholds.LateArrivalAfter)),
				Severity:       models.SeverityLow,
				Expected:       fmt.Sprintf("login at or before %s", utils.FormatClock(e.thresholds.LateArrivalAfter)),
				Actual:         fmt.Sprintf("login at %s", utils.FormatClock(loginMin)),
				Recommendation: "Provide a reason for the late arrival or correct the swipe record",
			}
			return e.newFinding(in, models.CategoryTimeValidation, sub), true, nil
		}
	}

	return nil, false, nil
}

// Rule 7: half-day AM/PM evaluation. Applies only when the declared kind is
// a half-day kind carrying both sub-kinds; otherwise the whole-day rule
// below handles the date.
func (e *Engine) ruleHalfDayConflict(in EvalInput) (*models.Finding, bool, error) {
	status := in.Status
	if !status.Kind.IsHalfDay() || !status.HasHalfDetail() {
		return nil, false, nil
	}
	if !status.HalfAM.IsValid() || !status.HalfPM.IsValid() {
		return nil, false, fmt.Errorf("%w: vendor %d date %s half-day sub-kinds %q/%q",
			ErrDataInconsistency, in.VendorID, models.DateKey(in.Date), status.HalfAM, status.HalfPM)
	}

	amSub := e.evaluateHalfWindow(in, "AM", status.HalfAM,
		swipeOverlaps(in.Swipe, e.thresholds.AMStart, e.thresholds.AMEnd))
	pmSub := e.evaluateHalfWindow(in, "PM", status.HalfPM,
		swipeOverlaps(in.Swipe, e.thresholds.PMStart, e.thresholds.PMEnd))

	if amSub == nil && pmSub == nil {
		return nil, true, nil
	}

	payload := models.FindingPayload{
		Category: models.CategoryHalfDayConflict,
		AM:       amSub,
		PM:       pmSub,
	}
	finding := &models.Finding{
		VendorID: in.VendorID,
		Date:     in.Date,
		Category: models.CategoryHalfDayConflict,
		Severity: payload.Severity(),
		Payload:  payload,
	}
	return finding, true, nil
}

// evaluateHalfWindow judges one half of the day against swipe overlap and
// the approval index. Returns nil when the half is consistent.
func (e *Engine) evaluateHalfWindow(in EvalInput, half string, kind models.HalfDayKind, overlap bool) *models.SubFinding {
	switch kind {
	case models.HalfInOffice:
		if overlap {
			return nil
		}
		return &models.SubFinding{
			Reason:         fmt.Sprintf("%s: in-office declared but no swipe overlap in the %s window", half, half),
			Severity:       models.SeverityHigh,
			Expected:       fmt.Sprintf("swipe overlap in %s window", half),
			Actual:         "no swipe overlap",
			Recommendation: fmt.Sprintf("Correct the %s half-day status or the swipe record", half),
		}

	case models.HalfWfh, models.HalfLeave:
		if overlap {
			label := "WFH"
			if kind == models.HalfLeave {
				label = "Leave"
			}
			return &models.SubFinding{
				Reason:         fmt.Sprintf("%s: %s declared but swipe record overlaps the %s window", half, label, half),
				Severity:       models.SeverityHigh,
				Expected:       fmt.Sprintf("no swipe overlap in %s window", half),
				Actual:         fmt.Sprintf("swipe overlap in %s window", half),
				Recommendation: fmt.Sprintf("Correct the %s half-day status or the swipe record", half),
			}
		}
		// Whole-day manager approval substitutes for the specific
		// approval window.
		if in.Status.ApprovalStatus == models.ApprovalApproved {
			return nil
		}
		covered := in.Approvals.OnWfh(in.Date)
		label := "WFH"
		if kind == models.HalfLeave {
			covered = in.Approvals.OnLeave(in.Date)
			label = "leave"
		}
		if covered {
			return nil
		}
		return &models.SubFinding{
			Reason:         fmt.Sprintf("%s: %s declared but no approved %s window covers this date", half, label, label),
			Severity:       models.SeverityMedium,
			Expected:       fmt.Sprintf("approved %s window covering this date", label),
			Actual:         "no covering approval window",
			Recommendation: fmt.Sprintf("Request an %s approval window for this date", label),
		}

	case models.HalfAbsent:
		if !overlap {
			return nil
		}
		return &models.SubFinding{
			Reason:         fmt.Sprintf("%s: absent declared but swipe record overlaps the %s window", half, half),
			Severity:       models.SeverityHigh,
			Expected:       fmt.Sprintf("no swipe overlap in %s window", half),
			Actual:         fmt.Sprintf("swipe overlap in %s window", half),
			Recommendation: fmt.Sprintf("Correct the %s half-day status or the swipe record", half),
		}
	}
	return nil
}

// Rule 8: whole-day equivalents for full-day kinds and half-day kinds
// without per-half detail.
func (e *Engine) ruleFullDayConflict(in EvalInput) (*models.Finding, bool, error) {
	status := in.Status
	present := swipePresent(in.Swipe)

	switch status.Kind {
	case models.KindInOfficeFull, models.KindInOfficeHalf:
		if present {
			return nil, false, nil
		}
		sub := &models.SubFinding{
			Reason:         "In-office status submitted but swipe record shows no presence",
			Severity:       models.SeverityHigh,
			Expected:       "swipe presence",
			Actual:         "no swipe presence",
			Recommendation: "Correct the declared status or raise a swipe correction",
		}
		return e.newFinding(in, models.CategoryStatusSwipeConflict, sub), true, nil

	case models.KindWfhFull, models.KindWfhHalf:
		if present {
			sub := &models.SubFinding{
				Reason:         "WFH status submitted but swipe record shows office presence",
				Severity:       models.SeverityHigh,
				Expected:       "no swipe presence",
				Actual:         "swipe presence",
				Recommendation: "Correct the declared status or raise a swipe correction",
			}
			return e.newFinding(in, models.CategoryStatusSwipeConflict, sub), true, nil
		}
		return e.approvalWindowCheck(in, "WFH", in.Approvals.OnWfh(in.Date))

	case models.KindLeaveFull, models.KindLeaveHalf:
		if present {
			sub := &models.SubFinding{
				Reason:         "Leave status submitted but swipe record shows office presence",
				Severity:       models.SeverityHigh,
				Expected:       "no swipe presence",
				Actual:         "swipe presence",
				Recommendation: "Correct the declared status or raise a swipe correction",
			}
			return e.newFinding(in, models.CategoryStatusSwipeConflict, sub), true, nil
		}
		return e.approvalWindowCheck(in, "leave", in.Approvals.OnLeave(in.Date))

	case models.KindAbsent:
		if !present {
			return nil, false, nil
		}
		sub := &models.SubFinding{
			Reason:         "Absent status submitted but swipe record shows office presence",
			Severity:       models.SeverityHigh,
			Expected:       "no swipe presence",
			Actual:         "swipe presence",
			Recommendation: "Correct the declared status or raise a swipe correction",
		}
		return e.newFinding(in, models.CategoryStatusSwipeConflict, sub), true, nil
	}

	return nil, false, fmt.Errorf("%w: vendor %d date %s unknown attendance kind %q",
		ErrDataInconsistency, in.VendorID, models.DateKey(in.Date), status.Kind)
}

// approvalWindowCheck emits ApprovalMissing when an away status has no
// covering approval window, unless whole-day manager approval suppresses it.
func (e *Engine) approvalWindowCheck(in EvalInput, label string, covered bool) (*models.Finding, bool, error) {
	if covered || in.Status.ApprovalStatus == models.ApprovalApproved {
		return nil, false, nil
	}
	sub := &models.SubFinding{
		Reason:         fmt.Sprintf("%s status submitted but no approved %s window covers this date", label, label),
		Severity:       models.SeverityMedium,
		Expected:       fmt.Sprintf("approved %s window covering this date", label),
		Actual:         "no covering approval window",
		Recommendation: fmt.Sprintf("Request an %s approval window for this date", label),
	}
	return e.newFinding(in, models.CategoryApprovalMissing, sub), true, nil
}

// newFinding wraps a single whole-day sub-finding into a finding.
func (e *Engine) newFinding(in EvalInput, category models.MismatchCategory, sub *models.SubFinding) *models.Finding {
	payload := models.FindingPayload{
		Category: category,
		FullDay:  sub,
	}
	return &models.Finding{
		VendorID: in.VendorID,
		Date:     in.Date,
		Category: category,
		Severity: sub.Severity,
		Payload:  payload,
	}
}

// swipePresent treats a missing swipe record as absent presence.
func swipePresent(swipe *models.SwipeRecord) bool {
	return swipe != nil && swipe.Presence == models.PresencePresent
}

// swipeOverlaps reports whether the swipe session overlaps a half-day
// window. A coarse presence flag without granular times counts as
// overlapping both halves.
func swipeOverlaps(swipe *models.SwipeRecord, windowStart, windowEnd int) bool {
	if !swipePresent(swipe) {
		return false
	}
	if !swipe.HasGranularTimes() {
		return true
	}
	login := utils.MinuteOfDay(*swipe.Login)
	logout := utils.MinuteOfDay(*swipe.Logout)
	return login < windowEnd && logout > windowStart
}
