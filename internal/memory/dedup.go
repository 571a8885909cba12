package memory

import (
	"context"

	"relaycore.dev/agentcore/internal/model"
)

// dedupJaccardThreshold is the similarity above which a newly mined learning
// is treated as a restatement of an existing one rather than a new fact.
const dedupJaccardThreshold = 0.8

// Dedup checks candidate against existing learnings of the same type and
// category. If it matches one above dedupJaccardThreshold, the existing
// learning is reinforced (its use counter incremented, last_used bumped) and
// Dedup reports found=true so the caller drops the new one instead of
// saving it.
func Dedup(ctx context.Context, store LearningStore, existing []model.Learning, candidate model.Learning) (found bool, err error) {
	candidateWords := wordSet(candidate.Content)

	for _, e := range existing {
		if e.Type != candidate.Type || e.Category != candidate.Category {
			continue
		}
		if jaccard(candidateWords, wordSet(e.Content)) > dedupJaccardThreshold {
			if err := store.ReinforceLearning(ctx, e.ID); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
