package workflow

import (
	"fmt"

	"github.com/vendorops/attendance/internal/models"
)

// Decision is a manager's resolution action on a pending mismatch.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// IsValid returns true if the decision is a known decision.
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// String returns the string representation of the decision.
func (d Decision) String() string {
	return string(d)
}

// transitions is the closed state table for the mismatch lifecycle:
// Pending is the only state with outgoing edges, and both targets are
// terminal. Transitions are never reversed.
var transitions = map[models.WorkflowState]map[Decision]models.WorkflowState{
	models.StatePending: {
		DecisionApprove: models.StateApproved,
		DecisionReject:  models.StateRejected,
	},
}

// Next returns the state reached by applying a decision in the current
// state, or ErrInvalidState when the transition is not permitted.
func Next(current models.WorkflowState, decision Decision) (models.WorkflowState, error) {
	targets, ok := transitions[current]
	if !ok {
		return "", fmt.Errorf("%w: no transitions from %s", ErrInvalidState, current)
	}
	next, ok := targets[decision]
	if !ok {
		return "", fmt.Errorf("%w: decision %s not permitted in %s", ErrInvalidState, decision, current)
	}
	return next, nil
}

// CanResolve reports whether any decision is still permitted in the state.
func CanResolve(current models.WorkflowState) bool {
	return len(transitions[current]) > 0
}
