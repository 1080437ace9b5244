package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatePlainString(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	tmpl, err := NewTemplate(engine, "no expressions here")
	require.NoError(t, err)

	out, err := tmpl.Eval(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "no expressions here", out)
}

func TestTemplateExpression(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	tmpl, err := NewTemplate(engine, `deploying to ${state["env"]} now`)
	require.NoError(t, err)

	out, err := tmpl.Eval(context.Background(), map[string]any{
		"state": map[string]any{"env": "staging"},
	})
	require.NoError(t, err)
	assert.Equal(t, "deploying to staging now", out)
}

func TestTemplateMultipleExpressions(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	out, err := EvalString(context.Background(), engine, `${state["a"]}-${state["b"]}`, map[string]any{
		"state": map[string]any{"a": "x", "b": "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "x-y", out)
}

func TestTemplateUnclosedExpression(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	_, err := NewTemplate(engine, "broken ${state[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed template expression")
}

func TestRisorTruthiness(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	ctx := context.Background()

	tests := []struct {
		code   string
		truthy bool
	}{
		{"true", true},
		{"false", false},
		{"1 > 0", true},
		{"0", false},
		{"42", true},
		{`"yes"`, true},
		{`""`, false},
		{`state["count"] >= 3`, true},
	}
	for _, tt := range tests {
		code, err := engine.Compile(ctx, tt.code)
		require.NoError(t, err, tt.code)
		value, err := code.Evaluate(ctx, map[string]any{
			"state": map[string]any{"count": 5},
		})
		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.truthy, value.IsTruthy(), tt.code)
	}
}

func TestRisorValueConversion(t *testing.T) {
	engine := NewRisorScriptingEngine(DefaultRisorGlobals())
	ctx := context.Background()

	code, err := engine.Compile(ctx, `{"name": "build", "count": 3}`)
	require.NoError(t, err)
	value, err := code.Evaluate(ctx, nil)
	require.NoError(t, err)

	result, ok := value.Value().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "build", result["name"])
	assert.Equal(t, int64(3), result["count"])
}
