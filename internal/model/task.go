package model

import "time"

// TaskInput is the caller-submitted unit of work. Immutable after submission;
// id is a process-unique snowflake identifier assigned at creation.
type TaskInput struct {
	ID          int64          `json:"id"`
	Description string         `json:"description"`
	Category    string         `json:"category,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	SessionID   *int64         `json:"session_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SessionContext is assembled by the caller before a task is submitted: it
// carries the agent's identity prose, the skills ranked for this task, the
// memory recalled for it, and the tool set available to the Executor.
type SessionContext struct {
	Soul           string          `json:"soul"`
	RankedSkills   []RankedSkill   `json:"ranked_skills"`
	Recall         RecallResult    `json:"recall"`
	Tools          []ToolSpec      `json:"tools"`
	ModelContextWindow int         `json:"model_context_window"`
}

// ToolSpec describes one tool surfaced to the ModelProvider for this task.
// Name follows the "server__tool" convention for namespaced MCP tools, or a
// bare name for integration-dispatched tools.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// TaskResult is the orchestrator's terminal output for a task.
type TaskResult struct {
	TaskID         int64          `json:"task_id"`
	Output         string         `json:"output"`
	Iterations     int            `json:"iterations"`
	TotalTokens    int64          `json:"total_tokens"`
	CostUSD        float64        `json:"cost_usd"`
	LearningsSaved int            `json:"learnings_saved"`
	SkillsUsed     []string       `json:"skills_used"`
	FinalScore     float64        `json:"final_score"`
	Decision       IterationDecision `json:"decision"`
}
