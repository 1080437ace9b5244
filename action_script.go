package dagflow

import (
	"context"
	"fmt"
)

// executeScript evaluates a script action. Only the "risor" language is
// supported; an unknown language fails without retries since retrying can
// never help.
func (e *DefaultStepExecutor) executeScript(ctx context.Context, action *ScriptAction, execCtx *ExecutionContext) (map[string]any, error) {
	if action.Code == "" {
		return nil, Fatalf("script code cannot be empty")
	}
	if action.Language != "" && action.Language != "risor" {
		return nil, Fatalf("unsupported script language %q", action.Language)
	}
	code, err := e.compiler.Compile(ctx, action.Code)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to compile script: %w", err))
	}
	value, err := code.Evaluate(ctx, e.scriptGlobals(execCtx))
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}

	outputs := map[string]any{"result": value.Value()}
	// A script returning a map contributes each entry as a named output.
	if m, ok := value.Value().(map[string]any); ok {
		for key, entry := range m {
			outputs[key] = entry
		}
	}
	return outputs, nil
}
