package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WorkflowState is the lifecycle state of a persisted mismatch record.
// Pending is the initial state; Approved and Rejected are terminal.
type WorkflowState string

const (
	StatePending  WorkflowState = "PENDING"
	StateApproved WorkflowState = "APPROVED"
	StateRejected WorkflowState = "REJECTED"
)

var validWorkflowStates = map[WorkflowState]bool{
	StatePending:  true,
	StateApproved: true,
	StateRejected: true,
}

// IsValid returns true if the state is a known workflow state.
func (s WorkflowState) IsValid() bool {
	return validWorkflowStates[s]
}

// IsTerminal returns true once no further transitions are allowed.
func (s WorkflowState) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

func (s WorkflowState) String() string {
	return string(s)
}

// SubFinding is one window-level (AM, PM, or whole-day) mismatch detail.
type SubFinding struct {
	Reason         string   `json:"reason"`
	Severity       Severity `json:"severity"`
	Expected       string   `json:"expected"`
	Actual         string   `json:"actual"`
	Recommendation string   `json:"recommendation"`
}

// FindingPayload is the structured mismatch payload persisted with a record
// and rendered by downstream summaries. Its JSON shape is a stable artifact:
// top-level category plus one or more of am_mismatch / pm_mismatch /
// full_day_mismatch.
type FindingPayload struct {
	Category MismatchCategory `json:"category"`
	AM       *SubFinding      `json:"am_mismatch,omitempty"`
	PM       *SubFinding      `json:"pm_mismatch,omitempty"`
	FullDay  *SubFinding      `json:"full_day_mismatch,omitempty"`
}

// Severity returns the highest severity across the present sub-findings.
func (p *FindingPayload) Severity() Severity {
	sev := Severity("")
	for _, sub := range []*SubFinding{p.AM, p.PM, p.FullDay} {
		if sub != nil {
			sev = MaxSeverity(sev, sub.Severity)
		}
	}
	return sev
}

// Summary concatenates the present sub-finding reasons with "; ".
func (p *FindingPayload) Summary() string {
	parts := make([]string, 0, 3)
	for _, sub := range []*SubFinding{p.AM, p.PM, p.FullDay} {
		if sub != nil {
			parts = append(parts, sub.Reason)
		}
	}
	return strings.Join(parts, "; ")
}

// MarshalPayload serializes a payload for storage.
func MarshalPayload(p FindingPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal finding payload: %w", err)
	}
	return string(raw), nil
}

// UnmarshalPayload parses a stored payload.
func UnmarshalPayload(raw string) (FindingPayload, error) {
	var p FindingPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return FindingPayload{}, fmt.Errorf("unmarshal finding payload: %w", err)
	}
	return p, nil
}

// Finding is the ephemeral output of one engine evaluation: at most one per
// (vendor, date) per run. It is persisted as a MismatchRecord only if the
// run's budgeter accepts it.
type Finding struct {
	VendorID int64
	Date     time.Time
	Category MismatchCategory
	Severity Severity
	Payload  FindingPayload
}

// MismatchRecord is a persisted finding plus its approval-workflow state.
type MismatchRecord struct {
	ID       int64
	VendorID int64
	Date     time.Time

	// Snapshots taken at detection time.
	DeclaredKind  AttendanceKind // empty when no submission existed
	SwipePresence Presence

	Category MismatchCategory
	Severity Severity
	Payload  FindingPayload

	Explanation string
	ExplainedAt *time.Time

	WorkflowState  WorkflowState
	ManagerComment string
	ApproverID     int64
	ResolvedAt     *time.Time

	RunID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasExplanation returns true once the vendor has submitted an explanation.
func (m *MismatchRecord) HasExplanation() bool {
	return m.ExplainedAt != nil
}

// MismatchFilter narrows mismatch listings.
type MismatchFilter struct {
	VendorID *int64
	State    *WorkflowState
	Category *MismatchCategory
	Limit    int
	Offset   int
}
