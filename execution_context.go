package dagflow

import "sync"

// ExecutionContext is the shared mutable state of one workflow run. All
// concurrently running step tasks of the run read and write it. Individual
// operations are atomic; there are no cross-key transactions, so a step
// reading two keys may observe a concurrent writer's update to only one.
type ExecutionContext struct {
	WorkflowID  string
	ExecutionID string

	mutex   sync.RWMutex
	state   map[string]any
	outputs map[string]map[string]any
}

// NewExecutionContext creates an empty context for one run. Contexts are
// never shared across runs.
func NewExecutionContext(workflowID, executionID string) *ExecutionContext {
	return &ExecutionContext{
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		state:       map[string]any{},
		outputs:     map[string]map[string]any{},
	}
}

// GetState returns a value from the shared state.
func (c *ExecutionContext) GetState(key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	value, exists := c.state[key]
	return value, exists
}

// SetState sets a value in the shared state. Last writer wins.
func (c *ExecutionContext) SetState(key string, value any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.state[key] = value
}

// State returns a shallow copy of the full shared state.
func (c *ExecutionContext) State() map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return copyMap(c.state)
}

// StepOutputs returns the named outputs a completed step produced.
func (c *ExecutionContext) StepOutputs(stepID string) (map[string]any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	outputs, exists := c.outputs[stepID]
	if !exists {
		return nil, false
	}
	return copyMap(outputs), true
}

// SetStepOutputs stores a step's outputs, making them visible to dependents.
// Written once per completed step.
func (c *ExecutionContext) SetStepOutputs(stepID string, outputs map[string]any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.outputs[stepID] = copyMap(outputs)
}

// AllOutputs returns a copy of every step's outputs, keyed by step id.
func (c *ExecutionContext) AllOutputs() map[string]map[string]any {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	all := make(map[string]map[string]any, len(c.outputs))
	for stepID, outputs := range c.outputs {
		all[stepID] = copyMap(outputs)
	}
	return all
}

// Clear removes all state and outputs. Used between runs, not while a run
// is active.
func (c *ExecutionContext) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.state = map[string]any{}
	c.outputs = map[string]map[string]any{}
}

// copyMap creates a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
