package dagflow

import (
	"context"
	"fmt"
)

// executeCustom dispatches to a registered handler by name.
func (e *DefaultStepExecutor) executeCustom(ctx context.Context, action *CustomAction, execCtx *ExecutionContext) (map[string]any, error) {
	handler, ok := e.handlers[action.Handler]
	if !ok {
		return nil, Fatalf("no handler registered with name %q", action.Handler)
	}
	outputs, err := handler.Execute(ctx, action.Parameters, execCtx)
	if err != nil {
		return nil, fmt.Errorf("handler %q failed: %w", action.Handler, err)
	}
	if outputs == nil {
		outputs = map[string]any{}
	}
	return outputs, nil
}
