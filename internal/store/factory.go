package store

import (
	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/memory"
)

// Stores provides access to every sub-store. It can be built from either a
// pool-backed Queries (non-transactional) or a transaction's Queries
// (passed to db.DB.WithTx), so callers needing several writes to commit
// atomically construct one Stores per transaction.
type Stores struct {
	queries *sqlc.Queries
}

// NewStores builds a Stores over the given query layer.
//
// Usage with the pool (non-transactional):
//
//	stores := store.NewStores(db.Queries())
//	task, err := stores.Tasks().Get(ctx, id)
//
// Usage within a transaction:
//
//	err := db.WithTx(ctx, func(q *sqlc.Queries) error {
//	    stores := store.NewStores(q)
//	    if err := stores.Tasks().Create(ctx, task); err != nil {
//	        return err
//	    }
//	    return stores.Cycles().Create(ctx, cycle)
//	})
func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Sessions() SessionStore          { return &sessionStore{queries: s.queries} }
func (s *Stores) Tasks() TaskStore                { return &taskStore{queries: s.queries} }
func (s *Stores) Cycles() CycleStore              { return &cycleStore{queries: s.queries} }
func (s *Stores) Learnings() memory.LearningStore { return &learningStore{queries: s.queries} }
func (s *Stores) Skills() memory.SkillStore       { return &skillStore{queries: s.queries} }
func (s *Stores) SkillWriter() SkillEffectivenessWriter { return &skillStore{queries: s.queries} }
func (s *Stores) Usage() UsageStore               { return &usageStore{queries: s.queries} }
func (s *Stores) Patterns() PatternStore          { return &patternStore{queries: s.queries} }
