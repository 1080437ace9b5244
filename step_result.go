package dagflow

import "time"

// StepState represents the lifecycle state of one step within an execution.
type StepState string

const (
	StepStatePending         StepState = "pending"
	StepStateRunning         StepState = "running"
	StepStateCompleted       StepState = "completed"
	StepStateFailed          StepState = "failed"
	StepStateSkipped         StepState = "skipped"
	StepStateWaitingApproval StepState = "waiting_approval"
	StepStatePaused          StepState = "paused"
)

// StepResult tracks one step's attempt sequence within a single execution.
// CompletedAt is set exactly when the state is terminal. This struct is
// fully JSON serializable.
type StepResult struct {
	StepID      string         `json:"step_id"`
	State       StepState      `json:"state"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at,omitzero"`
	CompletedAt time.Time      `json:"completed_at,omitzero"`
	RetryCount  int            `json:"retry_count"`
}

// NewStepResult returns a pending result for the given step.
func NewStepResult(stepID string) *StepResult {
	return &StepResult{StepID: stepID, State: StepStatePending}
}

// Complete marks the result successful with the given outputs.
func (r *StepResult) Complete(outputs map[string]any) *StepResult {
	r.State = StepStateCompleted
	r.Outputs = outputs
	r.Error = ""
	r.CompletedAt = time.Now()
	return r
}

// Fail marks the result failed with an error message.
func (r *StepResult) Fail(message string) *StepResult {
	r.State = StepStateFailed
	r.Error = message
	r.CompletedAt = time.Now()
	return r
}

// Skip marks the result skipped. Skipped steps satisfy their dependents.
func (r *StepResult) Skip() *StepResult {
	r.State = StepStateSkipped
	r.CompletedAt = time.Now()
	return r
}

// IsTerminal reports whether the step can no longer change state.
func (r *StepResult) IsTerminal() bool {
	switch r.State {
	case StepStateCompleted, StepStateFailed, StepStateSkipped:
		return true
	}
	return false
}

// IsSuccess reports whether the step completed successfully.
func (r *StepResult) IsSuccess() bool {
	return r.State == StepStateCompleted
}

// Copy returns a shallow copy of the result, with its own outputs map.
func (r *StepResult) Copy() *StepResult {
	c := *r
	c.Outputs = copyMap(r.Outputs)
	return &c
}
