package dagflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.jetify.com/typeid"
)

// NewExecutionID returns a new unique execution identifier
func NewExecutionID() string {
	id, err := typeid.WithPrefix("exec")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// ExecutionStatus represents the execution status
type ExecutionStatus string

const (
	ExecutionStatusPending         ExecutionStatus = "pending"
	ExecutionStatusRunning         ExecutionStatus = "running"
	ExecutionStatusWaitingApproval ExecutionStatus = "waiting_approval"
	ExecutionStatusPaused          ExecutionStatus = "paused"
	ExecutionStatusCompleted       ExecutionStatus = "completed"
	ExecutionStatusFailed          ExecutionStatus = "failed"
	ExecutionStatusCancelled       ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the execution can no longer change status.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	}
	return false
}

// ExecutionOptions configures a new execution
type ExecutionOptions struct {
	Workflow           *Workflow
	WorkflowID         string
	ExecutionID        string
	Inputs             map[string]any
	Executor           StepExecutor
	MaxConcurrency     int
	WorkflowTimeout    time.Duration
	ExecutionCallbacks ExecutionCallbacks
	Formatter          WorkflowFormatter
	Logger             *slog.Logger
}

// DefaultMaxConcurrency bounds simultaneously running steps when the
// execution is configured without a limit.
const DefaultMaxConcurrency = 10

// Execution is one run of a workflow. A single controller goroutine owns
// scheduling; each dispatched step runs in its own goroutine and reports
// back on a channel. External operations (approve, pause, cancel) only
// mutate status under the mutex and nudge the controller awake.
type Execution struct {
	workflow *Workflow
	dag      *DAG
	execCtx  *ExecutionContext

	executor        StepExecutor
	maxConcurrency  int
	workflowTimeout time.Duration
	callbacks       ExecutionCallbacks
	formatter       WorkflowFormatter
	logger          *slog.Logger

	mutex            sync.RWMutex
	status           ExecutionStatus
	results          map[string]*StepResult
	pendingApprovals map[string]bool
	running          int
	failure          error
	startTime        time.Time
	endTime          time.Time
	started          bool

	stepDone chan *StepResult
	wake     chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewExecution creates an execution in Pending status. Call Run to start it.
func NewExecution(opts ExecutionOptions) (*Execution, error) {
	if opts.Workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if opts.ExecutionID == "" {
		opts.ExecutionID = NewExecutionID()
	}
	if opts.Executor == nil {
		opts.Executor = NewStepExecutor(ExecutorOptions{Logger: opts.Logger})
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.ExecutionCallbacks == nil {
		opts.ExecutionCallbacks = &BaseExecutionCallbacks{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	dag := opts.Workflow.DAG()
	execCtx := NewExecutionContext(opts.WorkflowID, opts.ExecutionID)
	for key, value := range opts.Workflow.InitialState() {
		execCtx.SetState(key, value)
	}
	for key, value := range opts.Inputs {
		execCtx.SetState(key, value)
	}

	results := make(map[string]*StepResult, dag.Len())
	for _, step := range dag.Steps() {
		results[step.ID] = NewStepResult(step.ID)
	}

	return &Execution{
		workflow:         opts.Workflow,
		dag:              dag,
		execCtx:          execCtx,
		executor:         opts.Executor,
		maxConcurrency:   opts.MaxConcurrency,
		workflowTimeout:  opts.WorkflowTimeout,
		callbacks:        opts.ExecutionCallbacks,
		formatter:        opts.Formatter,
		logger:           opts.Logger.With("execution_id", opts.ExecutionID),
		status:           ExecutionStatusPending,
		results:          results,
		pendingApprovals: map[string]bool{},
		stepDone:         make(chan *StepResult, dag.Len()),
		wake:             make(chan struct{}, 1),
		done:             make(chan struct{}),
	}, nil
}

// ID returns the execution ID
func (e *Execution) ID() string {
	return e.execCtx.ExecutionID
}

// Status returns the current execution status
func (e *Execution) Status() ExecutionStatus {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.status
}

// Context returns the execution's shared state container.
func (e *Execution) Context() *ExecutionContext {
	return e.execCtx
}

// Err returns the failure that terminated the execution, if any.
func (e *Execution) Err() error {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.failure
}

// Run executes the workflow to completion, blocking until the execution
// reaches a terminal status. The returned error is the run's failure cause;
// a completed run returns nil.
func (e *Execution) Run(ctx context.Context) error {
	e.mutex.Lock()
	if e.started {
		e.mutex.Unlock()
		return fmt.Errorf("execution already started")
	}
	e.started = true
	// A cancel can land between creation and Run. Terminal status is final,
	// so settle immediately instead of dispatching anything.
	if e.status.IsTerminal() {
		e.mutex.Unlock()
		return e.finalize(ctx)
	}
	e.status = ExecutionStatusRunning
	e.startTime = time.Now()
	e.mutex.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	e.mutex.Lock()
	e.cancel = cancel
	e.mutex.Unlock()
	defer cancel()

	e.callbacks.BeforeWorkflowExecution(ctx, &WorkflowExecutionEvent{
		ExecutionID:  e.ID(),
		WorkflowID:   e.execCtx.WorkflowID,
		WorkflowName: e.workflow.Name(),
		Status:       ExecutionStatusRunning,
		StartTime:    e.startTime,
		StepCount:    e.dag.Len(),
	})
	e.logger.Info("execution started", "workflow", e.workflow.Name())

	var timeoutCh <-chan time.Time
	if e.workflowTimeout > 0 {
		timer := time.NewTimer(e.workflowTimeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	ctxDone := ctx.Done()

	for {
		e.mutex.Lock()
		e.dispatchReadyLocked(ctx)
		finished := e.isFinishedLocked()
		e.mutex.Unlock()
		if finished {
			break
		}
		select {
		case result := <-e.stepDone:
			e.recordResult(ctx, result)
		case <-e.wake:
		case <-timeoutCh:
			timeoutCh = nil
			e.failRun(fmt.Errorf("workflow timed out after %s", e.workflowTimeout))
		case <-ctxDone:
			ctxDone = nil
			e.markCancelled()
		}
	}
	return e.finalize(ctx)
}

// Wait blocks until the execution reaches a terminal status or the context
// is cancelled.
func (e *Execution) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return e.Err()
	}
}

// dispatchReadyLocked starts goroutines for ready steps, bounded by the
// concurrency limit. Approval steps are parked instead of dispatched and
// flip the execution into WaitingApproval, halting further dispatch until a
// decision arrives. No dispatch happens unless the status is Running.
func (e *Execution) dispatchReadyLocked(ctx context.Context) {
	done := map[string]bool{}
	for id, result := range e.results {
		if result.State == StepStateCompleted || result.State == StepStateSkipped {
			done[id] = true
		}
	}
	for _, id := range e.dag.ReadySteps(done) {
		if e.status != ExecutionStatusRunning {
			return
		}
		result := e.results[id]
		if result.State != StepStatePending {
			continue
		}
		step, _ := e.dag.Step(id)

		if step.Type == StepTypeApproval {
			result.State = StepStateWaitingApproval
			result.StartedAt = time.Now()
			e.pendingApprovals[id] = true
			e.status = ExecutionStatusWaitingApproval
			e.logger.Info("step waiting for approval", "step_id", id)
			continue
		}
		if e.running >= e.maxConcurrency {
			return
		}

		result.State = StepStateRunning
		result.StartedAt = time.Now()
		e.running++
		e.logger.Debug("dispatching step", "step_id", id)

		// Callbacks run outside the lock so they can query the execution.
		startEvent := e.stepEvent(step, result, nil)
		go func(step *Step) {
			if e.formatter != nil {
				e.formatter.PrintStepStart(step.Name, string(step.Action.Type))
			}
			e.callbacks.BeforeStepExecution(ctx, startEvent)
			e.stepDone <- e.executor.ExecuteStep(ctx, step, e.execCtx)
		}(step)
	}
}

// recordResult folds a finished step back into the execution: condition
// results skip the untaken branch, fail-on-error failures fail the run, and
// tolerated failures skip their transitive dependents so the run can still
// complete.
func (e *Execution) recordResult(ctx context.Context, result *StepResult) {
	e.mutex.Lock()
	e.running--
	e.results[result.StepID] = result
	step, _ := e.dag.Step(result.StepID)

	switch {
	case result.IsSuccess():
		e.logger.Info("step completed", "step_id", result.StepID, "retries", result.RetryCount)
		e.applyConditionOutcomeLocked(result)
	case result.State == StepStateFailed:
		e.logger.Warn("step failed", "step_id", result.StepID, "error", result.Error)
		if step.FailOnError {
			if e.failure == nil {
				e.failure = fmt.Errorf("step %q failed: %s", result.StepID, result.Error)
			}
			if !e.status.IsTerminal() {
				e.status = ExecutionStatusFailed
			}
		} else {
			e.skipDependentsLocked(result.StepID)
		}
	}
	e.mutex.Unlock()

	if e.formatter != nil {
		if result.State == StepStateFailed {
			e.formatter.PrintStepError(step.Name, fmt.Errorf("%s", result.Error))
		} else {
			e.formatter.PrintStepOutput(step.Name, result.Outputs)
		}
	}
	var stepErr error
	if result.Error != "" {
		stepErr = fmt.Errorf("%s", result.Error)
	}
	e.callbacks.AfterStepExecution(ctx, e.stepEvent(step, result, stepErr))
}

// applyConditionOutcomeLocked marks the steps of the branch a condition did
// not choose as Skipped. Only the named steps are skipped; their dependents
// stay eligible since Skipped satisfies a dependency.
func (e *Execution) applyConditionOutcomeLocked(result *StepResult) {
	skipped, ok := result.Outputs["skipped_steps"]
	if !ok {
		return
	}
	var ids []string
	switch v := skipped.(type) {
	case []string:
		ids = v
	case []any:
		for _, entry := range v {
			if id, ok := entry.(string); ok {
				ids = append(ids, id)
			}
		}
	default:
		return
	}
	for _, id := range ids {
		if r, exists := e.results[id]; exists && r.State == StepStatePending {
			r.Skip()
			e.logger.Debug("step skipped by condition", "step_id", id, "condition", result.StepID)
		}
	}
}

// skipDependentsLocked transitively skips every pending step downstream of
// the given step. Used when a tolerated failure leaves dependents
// unsatisfiable.
func (e *Execution) skipDependentsLocked(stepID string) {
	blocked := map[string]bool{stepID: true}
	for changed := true; changed; {
		changed = false
		for _, step := range e.dag.Steps() {
			if blocked[step.ID] {
				continue
			}
			for _, dep := range step.Dependencies {
				if !blocked[dep] {
					continue
				}
				blocked[step.ID] = true
				changed = true
				if r := e.results[step.ID]; r.State == StepStatePending {
					r.Skip()
					e.logger.Debug("step skipped after upstream failure",
						"step_id", step.ID, "failed_step", stepID)
				}
				break
			}
		}
	}
}

// isFinishedLocked reports whether the controller loop should stop. A
// failing or cancelled run still waits for in-flight steps to drain.
func (e *Execution) isFinishedLocked() bool {
	if e.running > 0 {
		return false
	}
	if e.status.IsTerminal() {
		return true
	}
	if e.status != ExecutionStatusRunning {
		return false
	}
	for _, result := range e.results {
		if !result.IsTerminal() {
			return false
		}
	}
	return true
}

// finalize settles the terminal status, fires callbacks, and releases
// waiters.
func (e *Execution) finalize(ctx context.Context) error {
	e.mutex.Lock()
	if !e.status.IsTerminal() {
		e.status = ExecutionStatusCompleted
	}
	e.endTime = time.Now()
	status := e.status
	failure := e.failure
	startTime := e.startTime
	endTime := e.endTime
	e.mutex.Unlock()

	// StartTime stays zero when the run was cancelled before it started.
	var duration time.Duration
	if !startTime.IsZero() {
		duration = endTime.Sub(startTime)
	}
	if status == ExecutionStatusCompleted {
		e.logger.Info("execution completed", "duration", duration)
	} else {
		e.logger.Warn("execution finished", "status", status, "error", failure)
	}
	e.callbacks.AfterWorkflowExecution(ctx, &WorkflowExecutionEvent{
		ExecutionID:  e.ID(),
		WorkflowID:   e.execCtx.WorkflowID,
		WorkflowName: e.workflow.Name(),
		Status:       status,
		StartTime:    startTime,
		EndTime:      endTime,
		Duration:     duration,
		StepCount:    e.dag.Len(),
		Error:        failure,
	})
	close(e.done)
	return failure
}

// failRun marks the run failed without touching in-flight steps.
func (e *Execution) failRun(err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.status.IsTerminal() {
		return
	}
	if e.failure == nil {
		e.failure = err
	}
	e.status = ExecutionStatusFailed
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Execution) markCancelled() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.status.IsTerminal() {
		return
	}
	e.status = ExecutionStatusCancelled
	if e.failure == nil {
		e.failure = context.Canceled
	}
}

// Approve resolves a parked approval step positively and resumes dispatch
// once no approvals remain pending.
func (e *Execution) Approve(stepID, approver string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.pendingApprovals[stepID] {
		return fmt.Errorf("step %q is not waiting for approval", stepID)
	}
	delete(e.pendingApprovals, stepID)
	outputs := map[string]any{"approved": true, "approver": approver}
	e.results[stepID].Complete(outputs)
	e.execCtx.SetStepOutputs(stepID, outputs)
	if len(e.pendingApprovals) == 0 && e.status == ExecutionStatusWaitingApproval {
		e.status = ExecutionStatusRunning
	}
	e.logger.Info("step approved", "step_id", stepID, "approver", approver)
	e.notify()
	return nil
}

// Reject resolves a parked approval step negatively. Approval steps always
// fail the run when rejected.
func (e *Execution) Reject(stepID, approver, reason string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.pendingApprovals[stepID] {
		return fmt.Errorf("step %q is not waiting for approval", stepID)
	}
	delete(e.pendingApprovals, stepID)
	if reason == "" {
		reason = "approval rejected"
	}
	e.results[stepID].Fail(reason)
	if e.failure == nil {
		e.failure = fmt.Errorf("step %q rejected by %s: %s", stepID, approver, reason)
	}
	e.status = ExecutionStatusFailed
	e.logger.Info("step rejected", "step_id", stepID, "approver", approver, "reason", reason)
	e.notify()
	return nil
}

// Pause halts dispatch of new steps. In-flight steps run to completion.
func (e *Execution) Pause() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.status != ExecutionStatusRunning {
		return fmt.Errorf("cannot pause execution in status %q", e.status)
	}
	e.status = ExecutionStatusPaused
	e.logger.Info("execution paused")
	e.notify()
	return nil
}

// Resume restarts dispatch after a pause.
func (e *Execution) Resume() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.status != ExecutionStatusPaused {
		return fmt.Errorf("cannot resume execution in status %q", e.status)
	}
	e.status = ExecutionStatusRunning
	e.logger.Info("execution resumed")
	e.notify()
	return nil
}

// Cancel stops the execution cooperatively: running steps get their context
// cancelled and the run settles in Cancelled once they return.
func (e *Execution) Cancel() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.status.IsTerminal() {
		return fmt.Errorf("cannot cancel execution in status %q", e.status)
	}
	e.status = ExecutionStatusCancelled
	if e.failure == nil {
		e.failure = context.Canceled
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.logger.Info("execution cancelled")
	e.notify()
	return nil
}

// notify nudges the controller loop. The wake channel is buffered so the
// signal coalesces instead of blocking callers.
func (e *Execution) notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Execution) stepEvent(step *Step, result *StepResult, err error) *StepExecutionEvent {
	// CompletedAt is zero on the before-execution event.
	var duration time.Duration
	if !result.CompletedAt.IsZero() {
		duration = result.CompletedAt.Sub(result.StartedAt)
	}
	return &StepExecutionEvent{
		ExecutionID:  e.ID(),
		WorkflowID:   e.execCtx.WorkflowID,
		WorkflowName: e.workflow.Name(),
		StepID:       step.ID,
		StepName:     step.Name,
		State:        result.State,
		Outputs:      result.Outputs,
		RetryCount:   result.RetryCount,
		StartTime:    result.StartedAt,
		EndTime:      result.CompletedAt,
		Duration:     duration,
		Error:        err,
	}
}

// ExecutionSnapshot is a point-in-time view of one run.
type ExecutionSnapshot struct {
	ExecutionID      string                 `json:"execution_id"`
	WorkflowID       string                 `json:"workflow_id"`
	WorkflowName     string                 `json:"workflow_name"`
	Status           ExecutionStatus        `json:"status"`
	CompletedSteps   []string               `json:"completed_steps"`
	RunningSteps     []string               `json:"running_steps"`
	FailedSteps      []string               `json:"failed_steps"`
	SkippedSteps     []string               `json:"skipped_steps"`
	PendingApprovals []string               `json:"pending_approvals"`
	StepResults      map[string]*StepResult `json:"step_results"`
	Error            string                 `json:"error,omitempty"`
	StartTime        time.Time              `json:"start_time,omitzero"`
	EndTime          time.Time              `json:"end_time,omitzero"`
}

// Snapshot captures the current status of the run. Steps that never ran
// appear as Pending in StepResults.
func (e *Execution) Snapshot() *ExecutionSnapshot {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	snapshot := &ExecutionSnapshot{
		ExecutionID:  e.ID(),
		WorkflowID:   e.execCtx.WorkflowID,
		WorkflowName: e.workflow.Name(),
		Status:       e.status,
		StepResults:  make(map[string]*StepResult, len(e.results)),
		StartTime:    e.startTime,
		EndTime:      e.endTime,
	}
	if e.failure != nil {
		snapshot.Error = e.failure.Error()
	}
	for id, result := range e.results {
		snapshot.StepResults[id] = result.Copy()
		switch result.State {
		case StepStateCompleted:
			snapshot.CompletedSteps = append(snapshot.CompletedSteps, id)
		case StepStateRunning:
			snapshot.RunningSteps = append(snapshot.RunningSteps, id)
		case StepStateFailed:
			snapshot.FailedSteps = append(snapshot.FailedSteps, id)
		case StepStateSkipped:
			snapshot.SkippedSteps = append(snapshot.SkippedSteps, id)
		case StepStateWaitingApproval:
			snapshot.PendingApprovals = append(snapshot.PendingApprovals, id)
		}
	}
	sort.Strings(snapshot.CompletedSteps)
	sort.Strings(snapshot.RunningSteps)
	sort.Strings(snapshot.FailedSteps)
	sort.Strings(snapshot.SkippedSteps)
	sort.Strings(snapshot.PendingApprovals)
	return snapshot
}
