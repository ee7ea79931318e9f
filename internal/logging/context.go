package logging

import (
	"context"
	"log/slog"

	"xia2pipe/internal/services"
)

const (
	// FieldComponent names the emitting package.
	FieldComponent = "component"
	// FieldSample is the work item's sample identifier.
	FieldSample = "sample"
	// FieldRun is the work item's run index.
	FieldRun = "run"
	// FieldStage is the pipeline stage (reduction or refinement).
	FieldStage = "stage"
	// FieldMethod is the catalogue method name.
	FieldMethod = "method"
	// FieldJobID is the scheduler job identifier.
	FieldJobID = "job_id"
	// FieldCorrelationID ties together every line of one sweep.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if sample, run, ok := services.WorkItemFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSample, sample), slog.Int(FieldRun, run))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
