package dagflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deepnoodle-ai/dagflow/retry"
	"github.com/deepnoodle-ai/dagflow/script"
)

// StepExecutor runs one step to a terminal result. Implementations never
// panic; every failure mode is reported through the returned StepResult.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, step *Step, execCtx *ExecutionContext) *StepResult
}

// ExecutorOptions configures a DefaultStepExecutor. All fields are optional.
type ExecutorOptions struct {
	// RetryPolicy controls backoff between attempts. Defaults to
	// retry.DefaultPolicy (1s base, 60s cap, 2.0 multiplier).
	RetryPolicy retry.Policy

	// Compiler evaluates script actions, condition expressions, and ${...}
	// templates. Defaults to the Risor engine.
	Compiler script.Compiler

	// AgentClient handles agent_invoke actions. Steps using agent_invoke
	// fail when no client is configured.
	AgentClient AgentClient

	// Handlers for custom actions, keyed by name.
	Handlers []Handler

	// HTTPClient used for http_request actions. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client

	// StepLogger records every attempt. Defaults to NullStepLogger.
	StepLogger StepLogger

	Logger *slog.Logger
}

// DefaultStepExecutor implements StepExecutor with per-attempt timeouts,
// bounded retries with exponential backoff, and output capture into the
// execution context.
type DefaultStepExecutor struct {
	retryPolicy retry.Policy
	compiler    script.Compiler
	agentClient AgentClient
	handlers    HandlerRegistry
	httpClient  *http.Client
	stepLogger  StepLogger
	logger      *slog.Logger
}

// NewStepExecutor creates an executor, applying defaults for any options
// left unset.
func NewStepExecutor(opts ExecutorOptions) *DefaultStepExecutor {
	policy := opts.RetryPolicy
	if policy.BaseWait <= 0 {
		policy = retry.DefaultPolicy()
	}
	compiler := opts.Compiler
	if compiler == nil {
		compiler = script.NewRisorScriptingEngine(script.DefaultRisorGlobals())
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	stepLogger := opts.StepLogger
	if stepLogger == nil {
		stepLogger = NewNullStepLogger()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	handlers := HandlerRegistry{}
	for _, handler := range opts.Handlers {
		handlers[handler.Name()] = handler
	}
	return &DefaultStepExecutor{
		retryPolicy: policy,
		compiler:    compiler,
		agentClient: opts.AgentClient,
		handlers:    handlers,
		httpClient:  httpClient,
		stepLogger:  stepLogger,
		logger:      logger,
	}
}

// RegisterHandler adds a custom action handler. Not safe to call while
// executions are in flight.
func (e *DefaultStepExecutor) RegisterHandler(handler Handler) {
	e.handlers[handler.Name()] = handler
}

// ExecuteStep runs the step's attempt loop: up to max_retries+1 attempts
// when retries are enabled, one otherwise. Each attempt is bounded by the
// step's timeout. A success stores the outputs in the execution context
// under the step id.
func (e *DefaultStepExecutor) ExecuteStep(ctx context.Context, step *Step, execCtx *ExecutionContext) *StepResult {
	result := NewStepResult(step.ID)
	result.State = StepStateRunning
	result.StartedAt = time.Now()

	attempts := 1
	if step.RetryEnabled && step.MaxRetries > 0 {
		attempts = step.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		attemptStart := time.Now()
		outputs, err := e.runAttempt(ctx, step, execCtx)
		e.logAttempt(ctx, step, execCtx, attempt, attemptStart, outputs, err)
		result.RetryCount = attempt

		if err == nil {
			execCtx.SetStepOutputs(step.ID, outputs)
			e.logger.Debug("step completed",
				"step_id", step.ID, "attempt", attempt)
			return result.Complete(outputs)
		}
		lastErr = err
		if IsFatal(err) {
			break
		}
		if attempt == attempts-1 {
			break
		}
		e.logger.Debug("step attempt failed, retrying",
			"step_id", step.ID, "attempt", attempt, "error", err)
		if sleepErr := e.retryPolicy.Sleep(ctx, attempt); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}
	e.logger.Debug("step failed",
		"step_id", step.ID, "retries", result.RetryCount, "error", lastErr)
	return result.Fail(ClassifyError(lastErr).Cause)
}

// runAttempt runs one attempt, racing the action against the step's timeout
// when one is configured. The action goroutine keeps its buffered channel so
// a timed-out attempt cannot leak.
func (e *DefaultStepExecutor) runAttempt(ctx context.Context, step *Step, execCtx *ExecutionContext) (map[string]any, error) {
	if step.Timeout <= 0 {
		return e.dispatch(ctx, step, execCtx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	type attemptOutcome struct {
		outputs map[string]any
		err     error
	}
	done := make(chan attemptOutcome, 1)
	go func() {
		outputs, err := e.dispatch(attemptCtx, step, execCtx)
		done <- attemptOutcome{outputs: outputs, err: err}
	}()

	select {
	case outcome := <-done:
		return outcome.outputs, outcome.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("Step timed out after %d seconds", int64(step.Timeout.Seconds()))
	}
}

// dispatch routes to the action implementation for the step's variant.
func (e *DefaultStepExecutor) dispatch(ctx context.Context, step *Step, execCtx *ExecutionContext) (map[string]any, error) {
	action := &step.Action
	if err := action.Validate(); err != nil {
		return nil, NewFatalError(err)
	}
	switch action.Type {
	case ActionTypeCommand:
		return e.executeCommand(ctx, action.Command, execCtx)
	case ActionTypeScript:
		return e.executeScript(ctx, action.Script, execCtx)
	case ActionTypeHTTPRequest:
		return e.executeHTTPRequest(ctx, action.HTTPRequest, execCtx)
	case ActionTypeAgentInvoke:
		return e.executeAgentInvoke(ctx, action.AgentInvoke)
	case ActionTypeCondition:
		return e.executeCondition(ctx, action.Condition, execCtx)
	case ActionTypeWait:
		return e.executeWait(ctx, action.Wait)
	case ActionTypeCustom:
		return e.executeCustom(ctx, action.Custom, execCtx)
	}
	return nil, Fatalf("unknown action type %q", action.Type)
}

func (e *DefaultStepExecutor) logAttempt(ctx context.Context, step *Step, execCtx *ExecutionContext, attempt int, start time.Time, outputs map[string]any, err error) {
	entry := &StepLogEntry{
		ExecutionID: execCtx.ExecutionID,
		WorkflowID:  execCtx.WorkflowID,
		StepID:      step.ID,
		ActionType:  string(step.Action.Type),
		Attempt:     attempt,
		Outputs:     outputs,
		StartTime:   start,
		Duration:    time.Since(start).Seconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if logErr := e.stepLogger.LogStep(ctx, entry); logErr != nil {
		e.logger.Warn("failed to write step log entry",
			"step_id", step.ID, "error", logErr)
	}
}

// scriptGlobals builds the evaluation environment exposed to expressions and
// templates: shared state under "state", prior step outputs under "outputs".
func (e *DefaultStepExecutor) scriptGlobals(execCtx *ExecutionContext) map[string]any {
	outputs := map[string]any{}
	for stepID, stepOutputs := range execCtx.AllOutputs() {
		outputs[stepID] = stepOutputs
	}
	return map[string]any{
		"state":   execCtx.State(),
		"outputs": outputs,
	}
}

// render evaluates ${...} template expressions in raw against the execution
// context.
func (e *DefaultStepExecutor) render(ctx context.Context, raw string, globals map[string]any) (string, error) {
	return script.EvalString(ctx, e.compiler, raw, globals)
}
