package dagflow

import (
	"context"
	"fmt"
)

// executeCondition evaluates the expression and reports which branch was
// chosen. The engine reads next_steps and skipped_steps from the outputs to
// skip the branch that was not taken.
func (e *DefaultStepExecutor) executeCondition(ctx context.Context, action *ConditionAction, execCtx *ExecutionContext) (map[string]any, error) {
	if action.Expression == "" {
		return nil, Fatalf("condition expression cannot be empty")
	}
	code, err := e.compiler.Compile(ctx, action.Expression)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("failed to compile condition: %w", err))
	}
	value, err := code.Evaluate(ctx, e.scriptGlobals(execCtx))
	if err != nil {
		return nil, fmt.Errorf("condition evaluation failed: %w", err)
	}

	result := value.IsTruthy()
	next, skipped := action.TrueSteps, action.FalseSteps
	if !result {
		next, skipped = action.FalseSteps, action.TrueSteps
	}
	return map[string]any{
		"result":        result,
		"next_steps":    next,
		"skipped_steps": skipped,
	}, nil
}
