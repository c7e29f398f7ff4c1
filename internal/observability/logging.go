// Package observability provides metrics, tracing and background-operation logging.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// AsyncOp logs and times one background operation such as a cascade job.
type AsyncOp struct {
	logger    *slog.Logger
	operation string
	start     time.Time
	attrs     []any
}

// StartAsync logs the start of operation and returns a handle to finish it.
func StartAsync(ctx context.Context, logger *slog.Logger, operation string, attrs ...any) *AsyncOp {
	op := &AsyncOp{
		logger:    logger,
		operation: operation,
		start:     time.Now(),
		attrs:     append([]any{slog.String("operation", operation)}, attrs...),
	}
	logger.InfoContext(ctx, "async operation started", op.attrs...)
	return op
}

// Done logs successful completion.
func (op *AsyncOp) Done(ctx context.Context, attrs ...any) {
	elapsed := time.Since(op.start)
	AsyncOperationDuration.WithLabelValues(op.operation, "ok").Observe(elapsed.Seconds())
	all := append(append([]any{}, op.attrs...), attrs...)
	all = append(all, slog.Duration("elapsed", elapsed))
	op.logger.InfoContext(ctx, "async operation completed", all...)
}

// Fail logs a failed completion.
func (op *AsyncOp) Fail(ctx context.Context, err error, attrs ...any) {
	elapsed := time.Since(op.start)
	AsyncOperationDuration.WithLabelValues(op.operation, "error").Observe(elapsed.Seconds())
	all := append(append([]any{}, op.attrs...), attrs...)
	all = append(all, slog.Duration("elapsed", elapsed), slog.String("error", err.Error()))
	op.logger.ErrorContext(ctx, "async operation failed", all...)
}
