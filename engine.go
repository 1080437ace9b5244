package dagflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.jetify.com/typeid"
)

// NewWorkflowID returns a new unique workflow identifier
func NewWorkflowID() string {
	id, err := typeid.WithPrefix("wf")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// EngineOptions configures a workflow engine
type EngineOptions struct {
	// Executor runs individual steps. Defaults to a DefaultStepExecutor
	// with the standard options.
	Executor StepExecutor

	// Repository persists registered workflow definitions. Defaults to an
	// in-memory repository.
	Repository WorkflowRepository

	// MaxConcurrency bounds simultaneously running steps per execution.
	// Defaults to DefaultMaxConcurrency. Adjustable later with
	// SetMaxConcurrency.
	MaxConcurrency int

	// WorkflowTimeout bounds the wall-clock duration of each execution.
	// Zero means no timeout. Adjustable later with SetWorkflowTimeout.
	WorkflowTimeout time.Duration

	ExecutionCallbacks ExecutionCallbacks
	Formatter          WorkflowFormatter
	Logger             *slog.Logger
}

// Engine registers workflows and drives their executions. All methods are
// safe for concurrent use. Settings changed at runtime apply to executions
// started afterwards.
type Engine struct {
	executor   StepExecutor
	repository WorkflowRepository
	callbacks  ExecutionCallbacks
	formatter  WorkflowFormatter
	logger     *slog.Logger

	mutex           sync.RWMutex
	workflows       map[string]*Workflow
	executions      map[string]*Execution
	maxConcurrency  int
	workflowTimeout time.Duration
}

// NewEngine creates an engine, applying defaults for unset options.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	executor := opts.Executor
	if executor == nil {
		executor = NewStepExecutor(ExecutorOptions{Logger: logger})
	}
	repository := opts.Repository
	if repository == nil {
		repository = NewMemoryWorkflowRepository()
	}
	callbacks := opts.ExecutionCallbacks
	if callbacks == nil {
		callbacks = &BaseExecutionCallbacks{}
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Engine{
		executor:        executor,
		repository:      repository,
		callbacks:       callbacks,
		formatter:       opts.Formatter,
		logger:          logger,
		workflows:       map[string]*Workflow{},
		executions:      map[string]*Execution{},
		maxConcurrency:  maxConcurrency,
		workflowTimeout: opts.WorkflowTimeout,
	}
}

// RegisterWorkflow validates and stores a workflow, returning its assigned
// id. The definition is written through to the repository.
func (e *Engine) RegisterWorkflow(ctx context.Context, workflow *Workflow) (string, error) {
	if workflow == nil {
		return "", fmt.Errorf("workflow is required")
	}
	workflowID := NewWorkflowID()

	definition, err := json.Marshal(Options{
		Name:        workflow.Name(),
		Description: workflow.Description(),
		Steps:       workflow.Steps(),
		State:       workflow.InitialState(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize workflow definition: %w", err)
	}
	record := &WorkflowRecord{
		ID:         workflowID,
		Name:       workflow.Name(),
		Definition: definition,
		Status:     WorkflowStatusActive,
	}
	if err := e.repository.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist workflow: %w", err)
	}

	e.mutex.Lock()
	e.workflows[workflowID] = workflow
	e.mutex.Unlock()

	e.logger.Info("workflow registered",
		"workflow_id", workflowID, "name", workflow.Name(), "steps", len(workflow.Steps()))
	return workflowID, nil
}

// GetWorkflow returns a registered workflow by id.
func (e *Engine) GetWorkflow(workflowID string) (*Workflow, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	workflow, ok := e.workflows[workflowID]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	return workflow, nil
}

// Execute starts a new execution of a registered workflow and returns its
// id immediately. The run proceeds in the background; observe it with
// GetExecutionStatus, GetExecution, or Execution.Wait.
func (e *Engine) Execute(ctx context.Context, workflowID string, inputs map[string]any) (string, error) {
	e.mutex.RLock()
	workflow, ok := e.workflows[workflowID]
	maxConcurrency := e.maxConcurrency
	workflowTimeout := e.workflowTimeout
	e.mutex.RUnlock()
	if !ok {
		return "", ErrWorkflowNotFound
	}

	execution, err := NewExecution(ExecutionOptions{
		Workflow:           workflow,
		WorkflowID:         workflowID,
		Inputs:             inputs,
		Executor:           e.executor,
		MaxConcurrency:     maxConcurrency,
		WorkflowTimeout:    workflowTimeout,
		ExecutionCallbacks: e.callbacks,
		Formatter:          e.formatter,
		Logger:             e.logger,
	})
	if err != nil {
		return "", err
	}

	e.mutex.Lock()
	e.executions[execution.ID()] = execution
	e.mutex.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go func() {
		// The run outlives the caller's request context.
		if err := execution.Run(runCtx); err != nil {
			e.logger.Warn("execution finished with error",
				"execution_id", execution.ID(), "error", err)
		}
		status := workflowStatusFor(execution.Status())
		if err := e.repository.UpdateStatus(runCtx, workflowID, status); err != nil {
			e.logger.Warn("failed to record terminal status",
				"workflow_id", workflowID, "status", status, "error", err)
		}
	}()
	return execution.ID(), nil
}

// GetExecution returns a live execution by id.
func (e *Engine) GetExecution(executionID string) (*Execution, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	execution, ok := e.executions[executionID]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	return execution, nil
}

// GetExecutionStatus returns a point-in-time snapshot of an execution.
func (e *Engine) GetExecutionStatus(executionID string) (*ExecutionSnapshot, error) {
	execution, err := e.GetExecution(executionID)
	if err != nil {
		return nil, err
	}
	return execution.Snapshot(), nil
}

// ApproveStep resolves a pending approval step positively.
func (e *Engine) ApproveStep(executionID, stepID, approver string) error {
	execution, err := e.GetExecution(executionID)
	if err != nil {
		return err
	}
	return execution.Approve(stepID, approver)
}

// RejectStep resolves a pending approval step negatively, failing the run.
func (e *Engine) RejectStep(executionID, stepID, approver, reason string) error {
	execution, err := e.GetExecution(executionID)
	if err != nil {
		return err
	}
	return execution.Reject(stepID, approver, reason)
}

// CancelExecution stops an execution cooperatively.
func (e *Engine) CancelExecution(executionID string) error {
	execution, err := e.GetExecution(executionID)
	if err != nil {
		return err
	}
	return execution.Cancel()
}

// PauseExecution halts dispatch of new steps for an execution.
func (e *Engine) PauseExecution(executionID string) error {
	execution, err := e.GetExecution(executionID)
	if err != nil {
		return err
	}
	return execution.Pause()
}

// ResumeExecution restarts dispatch for a paused execution.
func (e *Engine) ResumeExecution(executionID string) error {
	execution, err := e.GetExecution(executionID)
	if err != nil {
		return err
	}
	return execution.Resume()
}

// SetMaxConcurrency changes the per-execution concurrency bound for future
// executions.
func (e *Engine) SetMaxConcurrency(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("max concurrency must be positive")
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.maxConcurrency = limit
	return nil
}

// SetWorkflowTimeout changes the wall-clock limit applied to future
// executions. Zero disables the timeout.
func (e *Engine) SetWorkflowTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("workflow timeout cannot be negative")
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.workflowTimeout = timeout
	return nil
}
