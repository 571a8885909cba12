package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where task
// context (task_id, cycle_id, etc.) is automatically included in all log statements.
type LogFields struct {
	TaskID    *int64  // Task ID
	CycleID   *int64  // Iteration cycle ID within the task
	Iteration *int    // 1-indexed iteration number within the task
	MessageID *string // Redis stream message ID (watcher/queue ingestion)
	EventType *string // Event type (e.g., "task_submitted", "mention_received")
	Component string  // Component name (OTel semantic convention style, e.g., "agentcore.orchestrator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.TaskID != nil {
		result.TaskID = new.TaskID
	}
	if new.CycleID != nil {
		result.CycleID = new.CycleID
	}
	if new.Iteration != nil {
		result.Iteration = new.Iteration
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.EventType != nil {
		result.EventType = new.EventType
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TaskID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
// Useful for logging potentially long strings like queries or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
