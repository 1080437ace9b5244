package dagflow

import (
	"context"
	"fmt"
)

// executeAgentInvoke delegates to the configured AgentClient.
func (e *DefaultStepExecutor) executeAgentInvoke(ctx context.Context, action *AgentInvokeAction) (map[string]any, error) {
	if action.AgentID == "" {
		return nil, Fatalf("agent_id cannot be empty")
	}
	if e.agentClient == nil {
		return nil, Fatalf("no agent client configured")
	}
	outputs, err := e.agentClient.Invoke(ctx, action.AgentID, action.Parameters)
	if err != nil {
		return nil, fmt.Errorf("agent %q invocation failed: %w", action.AgentID, err)
	}
	if outputs == nil {
		outputs = map[string]any{}
	}
	return outputs, nil
}
