package model

import "time"

// ProgressEventKind is the closed set of tags a Daemon subscriber can see on
// the /api/v1/status SSE stream.
type ProgressEventKind string

const (
	ProgressPlanReady      ProgressEventKind = "plan_ready"
	ProgressIterationStart ProgressEventKind = "iteration_start"
	ProgressToolCall       ProgressEventKind = "tool_call"
	ProgressIterationEnd   ProgressEventKind = "iteration_end"
	ProgressSafetyWarning  ProgressEventKind = "safety_warning"
	ProgressComplete       ProgressEventKind = "complete"
)

// ProgressEvent is a tagged union emitted by the Orchestrator as a task
// advances. Only the field matching Kind is populated.
type ProgressEvent struct {
	Kind      ProgressEventKind `json:"kind"`
	TaskID    int64             `json:"task_id"`
	At        time.Time         `json:"at"`
	Iteration int               `json:"iteration,omitempty"`

	Plan     *Plan      `json:"plan,omitempty"`
	ToolName string     `json:"tool_name,omitempty"`
	Score    *float64   `json:"score,omitempty"`
	Decision IterationDecision `json:"decision,omitempty"`
	Warning  string     `json:"warning,omitempty"`
	Result   *TaskResult `json:"result,omitempty"`
}
