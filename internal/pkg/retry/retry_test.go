package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestRetryable_ExhaustsAttempts verifies that an operation which never
// produces a value is invoked exactly MaxAttempts times and the executor
// yields the default.
func TestRetryable_ExhaustsAttempts(t *testing.T) {
	fallback := 42
	r := Retryable[int]{MaxAttempts: 3, Default: &fallback, Logger: zap.NewNop()}

	calls := 0
	got := r.Do(context.Background(), "always_failing", func(ctx context.Context) Result[int] {
		calls++
		return Transient[int](errors.New("boom"))
	})

	assert.Equal(t, 3, calls)
	require.NotNil(t, got)
	assert.Equal(t, 42, *got)
}

// TestRetryable_SucceedsMidway verifies that a value produced on attempt k
// stops the executor after exactly k invocations and is returned as-is.
func TestRetryable_SucceedsMidway(t *testing.T) {
	r := Retryable[string]{MaxAttempts: 5, Logger: zap.NewNop()}

	calls := 0
	got := r.Do(context.Background(), "flaky", func(ctx context.Context) Result[string] {
		calls++
		if calls < 2 {
			return Structural[string](errors.New("bad shape"))
		}
		v := "value"
		return OK(&v)
	})

	assert.Equal(t, 2, calls)
	require.NotNil(t, got)
	assert.Equal(t, "value", *got)
}

// TestRetryable_NilDefaultOnExhaustion verifies that without a default the
// executor degrades to nil.
func TestRetryable_NilDefaultOnExhaustion(t *testing.T) {
	r := Retryable[int]{MaxAttempts: 2, Logger: zap.NewNop()}

	got := r.Do(context.Background(), "always_failing", func(ctx context.Context) Result[int] {
		return Transient[int](errors.New("boom"))
	})

	assert.Nil(t, got)
}

// TestRetryable_AtLeastOneAttempt verifies that a non-positive attempt count
// still runs the operation once.
func TestRetryable_AtLeastOneAttempt(t *testing.T) {
	r := Retryable[int]{MaxAttempts: 0, Logger: zap.NewNop()}

	calls := 0
	got := r.Do(context.Background(), "single", func(ctx context.Context) Result[int] {
		calls++
		v := 7
		return OK(&v)
	})

	assert.Equal(t, 1, calls)
	require.NotNil(t, got)
	assert.Equal(t, 7, *got)
}

// TestRetryable_ContextCancelled verifies that a cancelled context stops the
// loop before the next attempt and yields the default.
func TestRetryable_ContextCancelled(t *testing.T) {
	fallback := -1
	r := Retryable[int]{MaxAttempts: 10, Default: &fallback, Logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	got := r.Do(ctx, "cancelled", func(ctx context.Context) Result[int] {
		calls++
		cancel()
		return Transient[int](errors.New("boom"))
	})

	assert.Equal(t, 1, calls)
	require.NotNil(t, got)
	assert.Equal(t, -1, *got)
}

// TestOutcome_String pins the metric labels.
func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "transient", OutcomeTransient.String())
	assert.Equal(t, "structural", OutcomeStructural.String())
}
