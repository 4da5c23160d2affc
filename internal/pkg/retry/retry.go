package retry

import (
	"context"

	"go.uber.org/zap"

	"github.com/PeRDy/barrenero-api/pkg/metrics"
)

// Outcome tags a fetch result. Transient covers transport-level faults
// (non-2xx, timeout); Structural covers well-transported responses whose
// shape did not match expectations. Both degrade to "no result" and are
// equally retryable; the distinction exists for logging and metrics only.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTransient
	OutcomeStructural
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransient:
		return "transient"
	case OutcomeStructural:
		return "structural"
	default:
		return "unknown"
	}
}

// Result is the tagged return value of a fallible fetch. Value is nil unless
// Outcome is OutcomeOK. Err carries the diagnostic for failed outcomes and is
// never used for control flow.
type Result[T any] struct {
	Value   *T
	Outcome Outcome
	Err     error
}

// OK wraps a successful value.
func OK[T any](v *T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeOK}
}

// Transient wraps a transport-level fault.
func Transient[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeTransient, Err: err}
}

// Structural wraps a shape-mismatch fault.
func Structural[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeStructural, Err: err}
}

// Retryable executes an operation up to MaxAttempts times and yields the
// first non-nil value, else Default. There is no delay between attempts, so
// only idempotent reads may be wrapped. Success is determined solely by the
// returned value being non-nil: operations must translate their own faults
// into a failed Result before returning. A panic escaping the operation is a
// programming fault and propagates.
type Retryable[T any] struct {
	MaxAttempts int
	Default     *T
	Logger      *zap.Logger
}

// Do runs the operation until it produces a value, attempts are exhausted or
// the context is done.
func (r Retryable[T]) Do(ctx context.Context, operation string, op func(context.Context) Result[T]) *T {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			r.Logger.Warn("Retry cancelled",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(ctx.Err()))
			return r.Default
		default:
		}

		metrics.RetryAttempts.WithLabelValues(operation).Inc()
		res := op(ctx)
		if res.Value != nil {
			if attempt > 1 {
				r.Logger.Info("Operation succeeded after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return res.Value
		}

		switch res.Outcome {
		case OutcomeStructural:
			r.Logger.Warn("Unexpected upstream response shape",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(res.Err))
		default:
			r.Logger.Warn("Upstream request failed",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(res.Err))
		}
	}

	metrics.RetryExhausted.WithLabelValues(operation).Inc()
	r.Logger.Warn("Attempts exhausted, degrading to default",
		zap.String("operation", operation),
		zap.Int("max_attempts", attempts))
	return r.Default
}
