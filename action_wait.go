package dagflow

import (
	"context"
	"time"
)

// executeWait sleeps for the configured duration, honoring cancellation.
func (e *DefaultStepExecutor) executeWait(ctx context.Context, action *WaitAction) (map[string]any, error) {
	if action.Duration < 0 {
		return nil, Fatalf("wait duration cannot be negative")
	}
	duration := time.Duration(action.Duration * float64(time.Second))
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return map[string]any{"waited_seconds": action.Duration}, nil
}
