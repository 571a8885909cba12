package model

import "time"

// IterationCycle is the persisted record of exactly one executed iteration.
type IterationCycle struct {
	ID             int64             `json:"id"`
	TaskID         int64             `json:"task_id"`
	IterationIndex int               `json:"iteration_index"`
	Phase          string            `json:"phase"`
	Output         *ExecutionOutput  `json:"output,omitempty"`
	Evaluation     *Evaluation       `json:"evaluation,omitempty"`
	Decision       IterationDecision `json:"decision"`
	Usage          TokenUsage        `json:"usage"`
	Duration       time.Duration     `json:"duration"`
	SkillsUsed     []string          `json:"skills_used,omitempty"`
	Category       string            `json:"category,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Score reads evaluation.score, defaulting to 0.0 when no evaluation ran yet
// (e.g. a SkipEval cycle before it borrows the predecessor's evaluation).
func (c IterationCycle) Score() float64 {
	if c.Evaluation == nil {
		return 0.0
	}
	return c.Evaluation.Score
}
