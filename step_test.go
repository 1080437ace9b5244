package dagflow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStepDefaults(t *testing.T) {
	step := NewStep("build", StepTypeAction, Action{
		Type:    ActionTypeCommand,
		Command: &CommandAction{Command: "make"},
	})
	assert.Equal(t, "build", step.ID)
	assert.Equal(t, "build", step.Name)
	assert.True(t, step.FailOnError)
	assert.False(t, step.RetryEnabled)
	assert.Equal(t, DefaultMaxRetries, step.MaxRetries)
}

func TestStepBuilders(t *testing.T) {
	step := NewStep("deploy", StepTypeAction, Action{
		Type:    ActionTypeCommand,
		Command: &CommandAction{Command: "deploy.sh"},
	}).
		WithID("deploy-prod").
		WithDependencies("build", "test").
		WithTimeout(30 * time.Second).
		WithRetry(5).
		WithFailOnError(false).
		WithMetadata("owner", "platform")

	assert.Equal(t, "deploy-prod", step.ID)
	assert.Equal(t, []string{"build", "test"}, step.Dependencies)
	assert.Equal(t, 30*time.Second, step.Timeout)
	assert.True(t, step.RetryEnabled)
	assert.Equal(t, 5, step.MaxRetries)
	assert.False(t, step.FailOnError)
	assert.Equal(t, "platform", step.Metadata["owner"])
	require.NoError(t, step.Validate())
}

func TestStepValidate(t *testing.T) {
	missing := &Step{ID: "x", Type: StepTypeAction}
	assert.Error(t, missing.Validate())

	noID := &Step{Type: StepTypeAction}
	assert.Error(t, noID.Validate())

	badType := &Step{ID: "x", Type: "weird"}
	assert.Error(t, badType.Validate())

	approval := NewStep("gate", StepTypeApproval, Action{})
	assert.NoError(t, approval.Validate())
}

func TestActionValidate(t *testing.T) {
	valid := Action{Type: ActionTypeScript, Script: &ScriptAction{Code: "1"}}
	assert.NoError(t, valid.Validate())

	mismatched := Action{Type: ActionTypeScript, Command: &CommandAction{Command: "ls"}}
	assert.Error(t, mismatched.Validate())

	unknown := Action{Type: "teleport"}
	assert.Error(t, unknown.Validate())
}

func TestActionJSONDiscriminator(t *testing.T) {
	action := Action{
		Type: ActionTypeHTTPRequest,
		HTTPRequest: &HTTPRequestAction{
			Method: "POST",
			URL:    "https://example.com/hook",
		},
	}
	data, err := json.Marshal(action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"http_request","method":"POST","url":"https://example.com/hook"}`, string(data))

	var decoded Action
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ActionTypeHTTPRequest, decoded.Type)
	require.NotNil(t, decoded.HTTPRequest)
	assert.Equal(t, "POST", decoded.HTTPRequest.Method)
}

func TestStepJSONRoundTripDefaults(t *testing.T) {
	// fail_on_error omitted defaults to true; max_retries omitted defaults to 3
	raw := `{
		"id": "notify",
		"name": "Notify",
		"step_type": "action",
		"action": {"type": "wait", "duration": 1.5},
		"timeout": "45s"
	}`
	var step Step
	require.NoError(t, json.Unmarshal([]byte(raw), &step))
	assert.True(t, step.FailOnError)
	assert.Equal(t, DefaultMaxRetries, step.MaxRetries)
	assert.Equal(t, 45*time.Second, step.Timeout)
	require.NotNil(t, step.Action.Wait)
	assert.Equal(t, 1.5, step.Action.Wait.Duration)

	data, err := json.Marshal(step)
	require.NoError(t, err)
	var again Step
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, step, again)
}

func TestStepIDDefaultsToName(t *testing.T) {
	raw := `{"name": "cleanup", "step_type": "action", "action": {"type": "wait", "duration": 0}}`
	var step Step
	require.NoError(t, json.Unmarshal([]byte(raw), &step))
	assert.Equal(t, "cleanup", step.ID)
}

func TestStepResultLifecycle(t *testing.T) {
	result := NewStepResult("build")
	assert.Equal(t, StepStatePending, result.State)
	assert.False(t, result.IsTerminal())
	assert.True(t, result.CompletedAt.IsZero())

	result.Complete(map[string]any{"ok": true})
	assert.True(t, result.IsTerminal())
	assert.True(t, result.IsSuccess())
	assert.False(t, result.CompletedAt.IsZero())

	failed := NewStepResult("deploy").Fail("boom")
	assert.Equal(t, StepStateFailed, failed.State)
	assert.Equal(t, "boom", failed.Error)
	assert.True(t, failed.IsTerminal())
	assert.False(t, failed.IsSuccess())

	skipped := NewStepResult("later").Skip()
	assert.Equal(t, StepStateSkipped, skipped.State)
	assert.True(t, skipped.IsTerminal())
}
