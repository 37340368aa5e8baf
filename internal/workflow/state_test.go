package workflow

import (
	"errors"
	"testing"

	"github.com/vendorops/attendance/internal/models"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		current  models.WorkflowState
		decision Decision
		want     models.WorkflowState
		wantErr  bool
	}{
		{"approve pending", models.StatePending, DecisionApprove, models.StateApproved, false},
		{"reject pending", models.StatePending, DecisionReject, models.StateRejected, false},
		{"approve approved", models.StateApproved, DecisionApprove, "", true},
		{"reject approved", models.StateApproved, DecisionReject, "", true},
		{"approve rejected", models.StateRejected, DecisionApprove, "", true},
		{"unknown state", models.WorkflowState("LIMBO"), DecisionApprove, "", true},
		{"unknown decision", models.StatePending, Decision("DEFER"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.current, tt.decision)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidState) {
					t.Errorf("error = %v, want ErrInvalidState", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanResolve(t *testing.T) {
	if !CanResolve(models.StatePending) {
		t.Error("Pending must be resolvable")
	}
	if CanResolve(models.StateApproved) || CanResolve(models.StateRejected) {
		t.Error("terminal states must not be resolvable")
	}
}

func TestDecisionIsValid(t *testing.T) {
	if !DecisionApprove.IsValid() || !DecisionReject.IsValid() {
		t.Error("known decisions must be valid")
	}
	if Decision("MAYBE").IsValid() {
		t.Error("unknown decision must be invalid")
	}
}
