package services

import "context"

type contextKey string

const (
	sampleKey    contextKey = "sample"
	runKey       contextKey = "run"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithWorkItem annotates context with the work item identity.
func WithWorkItem(ctx context.Context, sample string, run int) context.Context {
	if sample == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, sampleKey, sample)
	return context.WithValue(ctx, runKey, run)
}

// WorkItemFromContext extracts the work item identity if present.
func WorkItemFromContext(ctx context.Context) (string, int, bool) {
	sample, ok := ctx.Value(sampleKey).(string)
	if !ok || sample == "" {
		return "", 0, false
	}
	run, _ := ctx.Value(runKey).(int)
	return sample, run, true
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
