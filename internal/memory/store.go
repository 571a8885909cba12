// Package memory implements the Memory Subsystem: token-budgeted recall,
// post-task learning extraction, deduplication, confidence decay, and the
// skill selector.
package memory

import (
	"context"

	"relaycore.dev/agentcore/internal/model"
)

// LearningStore is the persistence port the Memory Subsystem reads and
// writes Learnings through. internal/store provides the Postgres
// implementation; tests use a hand-rolled fake.
type LearningStore interface {
	ListLearnings(ctx context.Context, category string) ([]model.Learning, error)
	SaveLearning(ctx context.Context, l model.Learning) (model.Learning, error)
	ReinforceLearning(ctx context.Context, id int64) error
	DeleteLearning(ctx context.Context, id int64) error
}

// SkillStore is the persistence port for the skill catalog and its
// per-category effectiveness history.
type SkillStore interface {
	ListSkills(ctx context.Context) ([]model.Skill, error)
	Effectiveness(ctx context.Context, skillName, category string) (model.SkillEffectiveness, error)
}
