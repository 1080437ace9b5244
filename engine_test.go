package dagflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts EngineOptions, handlers ...Handler) *Engine {
	t.Helper()
	if opts.Executor == nil {
		opts.Executor = NewStepExecutor(ExecutorOptions{
			Handlers:    handlers,
			RetryPolicy: fastRetryPolicy(),
		})
	}
	return NewEngine(opts)
}

func runWorkflow(t *testing.T, engine *Engine, wf *Workflow, inputs map[string]any) (string, *Execution) {
	t.Helper()
	ctx := context.Background()
	workflowID, err := engine.RegisterWorkflow(ctx, wf)
	require.NoError(t, err)
	executionID, err := engine.Execute(ctx, workflowID, inputs)
	require.NoError(t, err)
	execution, err := engine.GetExecution(executionID)
	require.NoError(t, err)
	return executionID, execution
}

func waitForStatus(t *testing.T, engine *Engine, executionID string, status ExecutionStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		snapshot, err := engine.GetExecutionStatus(executionID)
		return err == nil && snapshot.Status == status
	}, 5*time.Second, 5*time.Millisecond, "execution never reached status %s", status)
}

func recordingHandler(name string, order *[]string, mutex *sync.Mutex) Handler {
	return NewHandlerFunction(name, func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		mutex.Lock()
		*order = append(*order, name)
		mutex.Unlock()
		return map[string]any{"done": true}, nil
	})
}

func TestEngineExecutesDiamond(t *testing.T) {
	var order []string
	var mutex sync.Mutex
	handlers := []Handler{
		recordingHandler("fetch", &order, &mutex),
		recordingHandler("build", &order, &mutex),
		recordingHandler("lint", &order, &mutex),
		recordingHandler("deploy", &order, &mutex),
	}
	engine := newTestEngine(t, EngineOptions{}, handlers...)

	step := func(id string, deps ...string) *Step {
		return NewStep(id, StepTypeAction, Action{
			Type:   ActionTypeCustom,
			Custom: &CustomAction{Handler: id},
		}).WithDependencies(deps...)
	}
	wf, err := New(Options{Name: "diamond", Steps: []*Step{
		step("fetch"),
		step("build", "fetch"),
		step("lint", "fetch"),
		step("deploy", "build", "lint"),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	require.NoError(t, execution.Wait(context.Background()))

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, snapshot.Status)
	assert.Equal(t, []string{"build", "deploy", "fetch", "lint"}, snapshot.CompletedSteps)

	mutex.Lock()
	defer mutex.Unlock()
	require.Len(t, order, 4)
	assert.Equal(t, "fetch", order[0])
	assert.Equal(t, "deploy", order[3])
}

func TestEngineSharesStateBetweenSteps(t *testing.T) {
	producer := NewHandlerFunction("producer", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		execCtx.SetState("version", "1.4.0")
		return map[string]any{"artifact": "app.tar.gz"}, nil
	})
	var seenState any
	var seenOutputs map[string]any
	consumer := NewHandlerFunction("consumer", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		seenState, _ = execCtx.GetState("version")
		seenOutputs, _ = execCtx.StepOutputs("produce")
		return nil, nil
	})
	engine := newTestEngine(t, EngineOptions{}, producer, consumer)

	wf, err := New(Options{Name: "pipeline", Steps: []*Step{
		NewStep("produce", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "producer"},
		}),
		NewStep("consume", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "consumer"},
		}).WithDependencies("produce"),
	}})
	require.NoError(t, err)

	_, execution := runWorkflow(t, engine, wf, nil)
	require.NoError(t, execution.Wait(context.Background()))

	assert.Equal(t, "1.4.0", seenState)
	require.NotNil(t, seenOutputs)
	assert.Equal(t, "app.tar.gz", seenOutputs["artifact"])
}

func TestEngineFailOnErrorBlocksDependents(t *testing.T) {
	failing := NewHandlerFunction("explode", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		return nil, fmt.Errorf("disk full")
	})
	engine := newTestEngine(t, EngineOptions{}, failing)

	wf, err := New(Options{Name: "fragile", Steps: []*Step{
		NewStep("risky", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "explode"},
		}),
		NewStep("after", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}).WithDependencies("risky"),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	err = execution.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "risky" failed`)

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusFailed, snapshot.Status)
	assert.Equal(t, []string{"risky"}, snapshot.FailedSteps)
	// Dependents of a fail-on-error failure are never attempted
	assert.Equal(t, StepStatePending, snapshot.StepResults["after"].State)
	assert.Contains(t, snapshot.StepResults["risky"].Error, "disk full")
}

func TestEngineToleratedFailureSkipsDependents(t *testing.T) {
	failing := NewHandlerFunction("explode", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		return nil, fmt.Errorf("optional step broke")
	})
	engine := newTestEngine(t, EngineOptions{}, failing)

	wf, err := New(Options{Name: "tolerant", Steps: []*Step{
		NewStep("optional", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "explode"},
		}).WithFailOnError(false),
		NewStep("uses_optional", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}).WithDependencies("optional"),
		NewStep("downstream", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}).WithDependencies("uses_optional"),
		NewStep("independent", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	require.NoError(t, execution.Wait(context.Background()))

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, snapshot.Status)
	assert.Equal(t, []string{"optional"}, snapshot.FailedSteps)
	assert.Equal(t, []string{"downstream", "uses_optional"}, snapshot.SkippedSteps)
	assert.Equal(t, []string{"independent"}, snapshot.CompletedSteps)
}

func TestEngineConditionSkipsBranch(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{})

	wf, err := New(Options{
		Name:  "branching",
		State: map[string]any{"replicas": 5},
		Steps: []*Step{
			NewStep("check", StepTypeCondition, Action{
				Type: ActionTypeCondition,
				Condition: &ConditionAction{
					Expression: `state["replicas"] > 3`,
					TrueSteps:  []string{"scale_down"},
					FalseSteps: []string{"scale_up"},
				},
			}),
			NewStep("scale_down", StepTypeAction, Action{
				Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
			}).WithDependencies("check"),
			NewStep("scale_up", StepTypeAction, Action{
				Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
			}).WithDependencies("check"),
			NewStep("report", StepTypeAction, Action{
				Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
			}).WithDependencies("scale_down", "scale_up"),
		},
	})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	require.NoError(t, execution.Wait(context.Background()))

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, snapshot.Status)
	assert.Equal(t, []string{"scale_up"}, snapshot.SkippedSteps)
	// A skipped step satisfies its dependents, so report still runs
	assert.Contains(t, snapshot.CompletedSteps, "report")
	assert.Contains(t, snapshot.CompletedSteps, "scale_down")
}

func TestEngineApprovalFlow(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{})

	wf, err := New(Options{Name: "gated", Steps: []*Step{
		NewStep("prepare", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}),
		NewStep("gate", StepTypeApproval, Action{}).WithDependencies("prepare"),
		NewStep("ship", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}).WithDependencies("gate"),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	waitForStatus(t, engine, executionID, ExecutionStatusWaitingApproval)

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"gate"}, snapshot.PendingApprovals)
	assert.Equal(t, StepStatePending, snapshot.StepResults["ship"].State)

	// Approving an unknown step is an error
	assert.Error(t, engine.ApproveStep(executionID, "ship", "ops"))

	require.NoError(t, engine.ApproveStep(executionID, "gate", "ops"))
	require.NoError(t, execution.Wait(context.Background()))

	snapshot, err = engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, snapshot.Status)
	assert.Equal(t, []string{"gate", "prepare", "ship"}, snapshot.CompletedSteps)
	assert.Equal(t, true, snapshot.StepResults["gate"].Outputs["approved"])
	assert.Equal(t, "ops", snapshot.StepResults["gate"].Outputs["approver"])
}

func TestEngineApprovalRejection(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{})

	wf, err := New(Options{Name: "gated", Steps: []*Step{
		NewStep("gate", StepTypeApproval, Action{}),
		NewStep("ship", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}).WithDependencies("gate"),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	waitForStatus(t, engine, executionID, ExecutionStatusWaitingApproval)

	require.NoError(t, engine.RejectStep(executionID, "gate", "ops", "not today"))
	err = execution.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusFailed, snapshot.Status)
	assert.Equal(t, []string{"gate"}, snapshot.FailedSteps)
	assert.Equal(t, StepStatePending, snapshot.StepResults["ship"].State)
}

func TestEngineMaxConcurrency(t *testing.T) {
	var mutex sync.Mutex
	current, peak := 0, 0
	worker := NewHandlerFunction("worker", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		mutex.Lock()
		current++
		if current > peak {
			peak = current
		}
		mutex.Unlock()
		time.Sleep(50 * time.Millisecond)
		mutex.Lock()
		current--
		mutex.Unlock()
		return nil, nil
	})
	engine := newTestEngine(t, EngineOptions{MaxConcurrency: 2}, worker)

	var steps []*Step
	for i := 0; i < 6; i++ {
		steps = append(steps, NewStep(fmt.Sprintf("job-%d", i), StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "worker"},
		}))
	}
	wf, err := New(Options{Name: "fanout", Steps: steps})
	require.NoError(t, err)

	_, execution := runWorkflow(t, engine, wf, nil)
	require.NoError(t, execution.Wait(context.Background()))

	mutex.Lock()
	defer mutex.Unlock()
	assert.LessOrEqual(t, peak, 2)
	assert.Greater(t, peak, 0)
}

func TestEngineCancelExecution(t *testing.T) {
	blocker := NewHandlerFunction("blocker", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	engine := newTestEngine(t, EngineOptions{}, blocker)

	wf, err := New(Options{Name: "stuck", Steps: []*Step{
		NewStep("forever", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "blocker"},
		}),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	require.Eventually(t, func() bool {
		snapshot, err := engine.GetExecutionStatus(executionID)
		return err == nil && snapshot.StepResults["forever"].State == StepStateRunning
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, engine.CancelExecution(executionID))
	err = execution.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCancelled, snapshot.Status)

	// Cancelling twice is an error once the run is terminal
	assert.Error(t, engine.CancelExecution(executionID))
}

func TestEnginePauseAndResume(t *testing.T) {
	release := make(chan struct{})
	gate := NewHandlerFunction("gate", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		select {
		case <-release:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	engine := newTestEngine(t, EngineOptions{}, gate)

	wf, err := New(Options{Name: "pausable", Steps: []*Step{
		NewStep("first", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "gate"},
		}),
		NewStep("second", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}).WithDependencies("first"),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	require.Eventually(t, func() bool {
		snapshot, err := engine.GetExecutionStatus(executionID)
		return err == nil && snapshot.StepResults["first"].State == StepStateRunning
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, engine.PauseExecution(executionID))
	close(release)

	// The in-flight step finishes, but second is not dispatched while paused
	require.Eventually(t, func() bool {
		snapshot, err := engine.GetExecutionStatus(executionID)
		return err == nil && snapshot.StepResults["first"].State == StepStateCompleted
	}, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusPaused, snapshot.Status)
	assert.Equal(t, StepStatePending, snapshot.StepResults["second"].State)

	// Resuming only works from Paused
	require.NoError(t, engine.ResumeExecution(executionID))
	assert.Error(t, engine.ResumeExecution(executionID))

	require.NoError(t, execution.Wait(context.Background()))
	snapshot, err = engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, snapshot.Status)
}

func TestEngineWorkflowTimeout(t *testing.T) {
	blocker := NewHandlerFunction("blocker", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	engine := newTestEngine(t, EngineOptions{WorkflowTimeout: 100 * time.Millisecond}, blocker)

	wf, err := New(Options{Name: "slow", Steps: []*Step{
		NewStep("forever", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "blocker"},
		}),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	err = execution.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow timed out")

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusFailed, snapshot.Status)
}

func TestEngineStepRetriesSurfaceInSnapshot(t *testing.T) {
	handler := &countingHandler{failures: 2}
	engine := newTestEngine(t, EngineOptions{}, handler)

	wf, err := New(Options{Name: "retrying", Steps: []*Step{
		customStep("flaky", 3),
	}})
	require.NoError(t, err)

	executionID, execution := runWorkflow(t, engine, wf, nil)
	require.NoError(t, execution.Wait(context.Background()))

	snapshot, err := engine.GetExecutionStatus(executionID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionStatusCompleted, snapshot.Status)
	assert.Equal(t, 2, snapshot.StepResults["flaky"].RetryCount)
}

func TestEngineUnknownIDs(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{})

	_, err := engine.Execute(context.Background(), "wf_nope", nil)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	_, err = engine.GetExecutionStatus("exec_nope")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
	assert.ErrorIs(t, engine.ApproveStep("exec_nope", "gate", "ops"), ErrExecutionNotFound)
	assert.ErrorIs(t, engine.CancelExecution("exec_nope"), ErrExecutionNotFound)
}

func TestEngineSettings(t *testing.T) {
	engine := newTestEngine(t, EngineOptions{})
	assert.Error(t, engine.SetMaxConcurrency(0))
	assert.NoError(t, engine.SetMaxConcurrency(4))
	assert.Error(t, engine.SetWorkflowTimeout(-time.Second))
	assert.NoError(t, engine.SetWorkflowTimeout(time.Minute))
}

func TestEngineRegisterPersistsDefinition(t *testing.T) {
	repo := NewMemoryWorkflowRepository()
	engine := newTestEngine(t, EngineOptions{Repository: repo})

	wf, err := New(Options{Name: "persisted", Steps: []*Step{
		NewStep("only", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}),
	}})
	require.NoError(t, err)

	workflowID, err := engine.RegisterWorkflow(context.Background(), wf)
	require.NoError(t, err)

	record, err := repo.Find(context.Background(), workflowID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", record.Name)
	assert.Equal(t, WorkflowStatusActive, record.Status)
	assert.Contains(t, string(record.Definition), `"only"`)
}

func TestExecutionCancelBeforeRun(t *testing.T) {
	wf, err := New(Options{Name: "never", Steps: []*Step{
		NewStep("only", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}),
	}})
	require.NoError(t, err)

	execution, err := NewExecution(ExecutionOptions{Workflow: wf})
	require.NoError(t, err)
	require.NoError(t, execution.Cancel())

	// A run started after cancellation settles without dispatching anything
	err = execution.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExecutionStatusCancelled, execution.Status())

	snapshot := execution.Snapshot()
	assert.Empty(t, snapshot.CompletedSteps)
	assert.Equal(t, StepStatePending, snapshot.StepResults["only"].State)

	// Waiters are released even though nothing ran
	assert.ErrorIs(t, execution.Wait(context.Background()), context.Canceled)
}

func TestEngineRecordsTerminalStatus(t *testing.T) {
	failing := NewHandlerFunction("explode", func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
		return nil, fmt.Errorf("boom")
	})
	repo := NewMemoryWorkflowRepository()
	engine := newTestEngine(t, EngineOptions{Repository: repo}, failing)

	good, err := New(Options{Name: "good", Steps: []*Step{
		NewStep("only", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}),
	}})
	require.NoError(t, err)
	bad, err := New(Options{Name: "bad", Steps: []*Step{
		NewStep("only", StepTypeAction, Action{
			Type: ActionTypeCustom, Custom: &CustomAction{Handler: "explode"},
		}),
	}})
	require.NoError(t, err)

	ctx := context.Background()
	goodID, err := engine.RegisterWorkflow(ctx, good)
	require.NoError(t, err)
	goodExecutionID, err := engine.Execute(ctx, goodID, nil)
	require.NoError(t, err)
	goodExecution, err := engine.GetExecution(goodExecutionID)
	require.NoError(t, err)
	require.NoError(t, goodExecution.Wait(ctx))

	badID, err := engine.RegisterWorkflow(ctx, bad)
	require.NoError(t, err)
	_, err = engine.Execute(ctx, badID, nil)
	require.NoError(t, err)

	// The terminal status write-through lands after the run settles
	require.Eventually(t, func() bool {
		record, err := repo.Find(ctx, goodID)
		return err == nil && record.Status == WorkflowStatusCompleted
	}, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		record, err := repo.Find(ctx, badID)
		return err == nil && record.Status == WorkflowStatusFailed
	}, 5*time.Second, 5*time.Millisecond)
}

type capturingCallbacks struct {
	BaseExecutionCallbacks
	mutex  sync.Mutex
	before []*StepExecutionEvent
	after  []*StepExecutionEvent
}

func (c *capturingCallbacks) BeforeStepExecution(ctx context.Context, event *StepExecutionEvent) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.before = append(c.before, event)
}

func (c *capturingCallbacks) AfterStepExecution(ctx context.Context, event *StepExecutionEvent) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.after = append(c.after, event)
}

func TestEngineStepEventDurations(t *testing.T) {
	callbacks := &capturingCallbacks{}
	engine := newTestEngine(t, EngineOptions{ExecutionCallbacks: callbacks})

	wf, err := New(Options{Name: "observed", Steps: []*Step{
		NewStep("only", StepTypeAction, Action{
			Type: ActionTypeWait, Wait: &WaitAction{Duration: 0},
		}),
	}})
	require.NoError(t, err)

	_, execution := runWorkflow(t, engine, wf, nil)
	require.NoError(t, execution.Wait(context.Background()))

	callbacks.mutex.Lock()
	defer callbacks.mutex.Unlock()
	require.Len(t, callbacks.before, 1)
	require.Len(t, callbacks.after, 1)
	// The step has not finished yet, so the before event carries no duration
	assert.Equal(t, time.Duration(0), callbacks.before[0].Duration)
	assert.True(t, callbacks.before[0].EndTime.IsZero())
	assert.GreaterOrEqual(t, callbacks.after[0].Duration, time.Duration(0))
	assert.False(t, callbacks.after[0].EndTime.IsZero())
}
