package dagflow

import (
	"context"
	"time"
)

// StepLogEntry records one completed step attempt.
type StepLogEntry struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	StepID      string         `json:"step_id"`
	ActionType  string         `json:"action_type,omitempty"`
	Attempt     int            `json:"attempt"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartTime   time.Time      `json:"start_time"`
	Duration    float64        `json:"duration"`
}

// StepLogger defines the step audit logging interface. The executor writes
// one entry per attempt, success or failure.
type StepLogger interface {
	// LogStep logs one completed step attempt.
	LogStep(ctx context.Context, entry *StepLogEntry) error

	// GetStepHistory retrieves the attempt log for an execution.
	GetStepHistory(ctx context.Context, executionID string) ([]*StepLogEntry, error)
}
