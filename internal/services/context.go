package services

import "context"

type contextKey string

const (
	runIDKey       contextKey = "run_id"
	stageKey       contextKey = "stage"
	participantKey contextKey = "participant"
	trialKey       contextKey = "trial"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
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

// WithRecording annotates context with the participant and trial being processed.
func WithRecording(ctx context.Context, participant, trial string) context.Context {
	if participant != "" {
		ctx = context.WithValue(ctx, participantKey, participant)
	}
	if trial != "" {
		ctx = context.WithValue(ctx, trialKey, trial)
	}
	return ctx
}

// RecordingFromContext returns the participant and trial if both are present.
func RecordingFromContext(ctx context.Context) (participant, trial string, ok bool) {
	participant, _ = ctx.Value(participantKey).(string)
	trial, _ = ctx.Value(trialKey).(string)
	return participant, trial, participant != "" && trial != ""
}
