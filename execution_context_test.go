package dagflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionContextState(t *testing.T) {
	execCtx := NewExecutionContext("wf_1", "exec_1")

	_, ok := execCtx.GetState("missing")
	assert.False(t, ok)

	execCtx.SetState("env", "staging")
	value, ok := execCtx.GetState("env")
	require.True(t, ok)
	assert.Equal(t, "staging", value)

	// State() returns a copy; mutating it does not affect the context
	state := execCtx.State()
	state["env"] = "prod"
	value, _ = execCtx.GetState("env")
	assert.Equal(t, "staging", value)
}

func TestExecutionContextStepOutputs(t *testing.T) {
	execCtx := NewExecutionContext("wf_1", "exec_1")

	_, ok := execCtx.StepOutputs("build")
	assert.False(t, ok)

	execCtx.SetStepOutputs("build", map[string]any{"artifact": "app.tar.gz"})
	outputs, ok := execCtx.StepOutputs("build")
	require.True(t, ok)
	assert.Equal(t, "app.tar.gz", outputs["artifact"])

	// Returned maps are copies
	outputs["artifact"] = "tampered"
	outputs, _ = execCtx.StepOutputs("build")
	assert.Equal(t, "app.tar.gz", outputs["artifact"])

	all := execCtx.AllOutputs()
	assert.Len(t, all, 1)
}

func TestExecutionContextClear(t *testing.T) {
	execCtx := NewExecutionContext("wf_1", "exec_1")
	execCtx.SetState("key", 1)
	execCtx.SetStepOutputs("a", map[string]any{"x": 1})

	execCtx.Clear()

	assert.Empty(t, execCtx.State())
	assert.Empty(t, execCtx.AllOutputs())
}

func TestExecutionContextConcurrentAccess(t *testing.T) {
	execCtx := NewExecutionContext("wf_1", "exec_1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			execCtx.SetState("counter", n)
			execCtx.SetStepOutputs("step", map[string]any{"n": n})
		}(i)
		go func() {
			defer wg.Done()
			execCtx.GetState("counter")
			execCtx.State()
			execCtx.AllOutputs()
		}()
	}
	wg.Wait()

	_, ok := execCtx.GetState("counter")
	assert.True(t, ok)
}
