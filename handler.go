package dagflow

import (
	"context"
)

// Handler runs a custom action. Handlers are registered with the executor
// and selected by name from the action definition.
type Handler interface {

	// Name returns the name of the Handler
	Name() string

	// Execute the handler with the given parameters. Returned outputs become
	// the step's outputs.
	Execute(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error)
}

// HandlerRegistry is a map of handler names to handlers
type HandlerRegistry map[string]Handler

// HandlerFunction is a function that can be used as a custom action handler
type HandlerFunction struct {
	name string
	fn   func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error)
}

// NewHandlerFunction creates a new HandlerFunction
func NewHandlerFunction(name string, fn func(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error)) *HandlerFunction {
	return &HandlerFunction{name: name, fn: fn}
}

func (h *HandlerFunction) Name() string {
	return h.name
}

func (h *HandlerFunction) Execute(ctx context.Context, params map[string]any, execCtx *ExecutionContext) (map[string]any, error) {
	return h.fn(ctx, params, execCtx)
}

// AgentClient invokes an external agent on behalf of agent_invoke actions.
// Implementations own transport, auth, and model selection.
type AgentClient interface {
	Invoke(ctx context.Context, agentID string, parameters map[string]any) (map[string]any, error)
}
