package model

import "time"

// SkillKind distinguishes task-executable skills (ranked, inlined into
// prompts) from other skill kinds reserved for future use.
type SkillKind string

const (
	SkillKindTask SkillKind = "task"
)

// Skill is a declared capability with a body that can be inlined in a
// prompt. Eligibility checks and ranking live in internal/memory.
type Skill struct {
	Name        string    `json:"name"`
	Kind        SkillKind `json:"kind"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	Category    string    `json:"category,omitempty"`
}

// RankedSkill pairs a Skill with the composite score the Skill Selector gave
// it for a specific task.
type RankedSkill struct {
	Skill Skill   `json:"skill"`
	Score float64 `json:"score"`
}

// SkillEffectiveness is the running-mean effectiveness of one skill within
// one task category. Unique per (SkillName, TaskCategory) pair.
type SkillEffectiveness struct {
	SkillName    string     `json:"skill_name"`
	TaskCategory string     `json:"task_category"`
	AvgScore     float64    `json:"avg_score"`
	SampleCount  int        `json:"sample_count"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
}

// Update folds a new observed score into the running mean:
// avg' = (avg*n + new)/(n+1); n' = n+1.
func (s *SkillEffectiveness) Update(newScore float64, at time.Time) {
	s.AvgScore = (s.AvgScore*float64(s.SampleCount) + newScore) / float64(s.SampleCount+1)
	s.SampleCount++
	s.LastUsed = &at
}
