package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one gateway or service operation and logs its outcome.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from the provided context. The context logger
// gains a trace id if it has none; span attributes are only attached to the
// span's own completion record so nested spans do not repeat them.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
		ctx = WithLogger(ctx, logger)
	}

	parentSpanID := SpanIDFromContext(ctx)
	spanID := uuid.NewString()

	spanLogger := logger.With(
		slog.String("span_id", spanID),
		slog.String("span_name", name),
	)
	if parentSpanID != "" {
		spanLogger = spanLogger.With(slog.String("parent_span_id", parentSpanID))
	}

	ctx = WithSpanID(ctx, spanID)

	return ctx, &Span{
		name:   name,
		logger: spanLogger,
		start:  time.Now(),
	}
}

// End finalizes the span. A nil err logs completion at debug level; anything
// else is logged as a failed span.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if err != nil {
		s.logger.Warn("span failed", elapsed, slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("span completed", elapsed)
}
