package dagflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	timeout := ClassifyError(fmt.Errorf("Step timed out after 30 seconds"))
	assert.Equal(t, ErrorTypeTimeout, timeout.Type)

	deadline := ClassifyError(fmt.Errorf("request: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeTimeout, deadline.Type)

	plain := ClassifyError(fmt.Errorf("connection refused"))
	assert.Equal(t, ErrorTypeStepFailed, plain.Type)

	// Already-classified errors pass through unchanged
	fatal := ClassifyError(Fatalf("bad config"))
	assert.Equal(t, ErrorTypeFatal, fatal.Type)
	assert.Equal(t, "bad config", fatal.Cause)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(Fatalf("no handler")))
	assert.True(t, IsFatal(context.Canceled))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", NewFatalError(errors.New("boom")))))
	assert.False(t, IsFatal(fmt.Errorf("transient")))
	assert.False(t, IsFatal(context.DeadlineExceeded))
}

func TestStepErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewFatalError(cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "fatal: root cause", err.Error())
}
