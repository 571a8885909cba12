package model

import "time"

// LearningType classifies a Learning's role in future recall ordering.
type LearningType string

const (
	LearningTypeHeuristic   LearningType = "heuristic"
	LearningTypeAntiPattern LearningType = "anti_pattern"
	LearningTypePreference  LearningType = "preference"
)

// MinConfidence is the floor below which a Learning is pruned by decay.
const MinConfidence = 0.1

// Learning is a durable text snippet with a type and confidence, mined from
// completed tasks and used to steer future prompts via Memory Recall.
type Learning struct {
	ID               int64        `json:"id"`
	Type             LearningType `json:"type"`
	Content          string       `json:"content"`
	Category         string       `json:"category,omitempty"`
	Confidence       float64      `json:"confidence"`
	SourceTaskID     *int64       `json:"source_task,omitempty"`
	ReinforcedCount  int          `json:"reinforced_count"`
	LastUsed         *time.Time   `json:"last_used,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ConfidenceBand buckets confidence into the recall prompt's [high|medium|low]
// tags: >=0.8 high, >=0.5 medium, else low.
func (l Learning) ConfidenceBand() string {
	switch {
	case l.Confidence >= 0.8:
		return "high"
	case l.Confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
