// Package store implements the Persistent Store (spec §4.9): a Postgres
// store accessed through small per-entity sub-stores, behind forward-only
// goose migrations (core/db/migrations).
package store

import (
	"context"
	"time"

	"relaycore.dev/agentcore/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist. It is the
// same sentinel as model.ErrNotFound.
var ErrNotFound = model.ErrNotFound

// SessionStore persists a SessionContext's identity prose per session id.
type SessionStore interface {
	Create(ctx context.Context, id int64, soul string) error
	Get(ctx context.Context, id int64) (model.Session, error)
}

// TaskStore persists TaskInput submissions and their terminal TaskResult.
type TaskStore interface {
	Create(ctx context.Context, task model.TaskInput) error
	Get(ctx context.Context, id int64) (model.TaskInput, error)
	List(ctx context.Context, limit int32) ([]model.TaskInput, error)
	Complete(ctx context.Context, taskID int64, result model.TaskResult, completedAt time.Time) error
}

// CycleStore persists one IterationCycle per executed iteration.
type CycleStore interface {
	Create(ctx context.Context, cycle model.IterationCycle) error
	ListByTask(ctx context.Context, taskID int64) ([]model.IterationCycle, error)
}

// UsageStore persists individual UsageEvents for the Cost Tracker.
type UsageStore interface {
	Create(ctx context.Context, event model.UsageEvent) error
	ListByTask(ctx context.Context, taskID int64) ([]model.UsageEvent, error)
}

// PatternStore persists the daemon's approved scheduled patterns.
type PatternStore interface {
	ListApproved(ctx context.Context) ([]model.ScheduledPattern, error)
}

// SkillEffectivenessWriter updates a skill's running-mean effectiveness
// after a task completes (spec §3: avg' = (avg*n + new)/(n+1)). Kept
// separate from memory.SkillStore, which only reads effectiveness for
// recall and selection.
type SkillEffectivenessWriter interface {
	UpsertEffectiveness(ctx context.Context, eff model.SkillEffectiveness) error
}
