package store

import (
	"context"
	"time"

	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/model"
)

// learningStore implements memory.LearningStore. Structurally the same
// shape as the teacher's own learningStore (sqlc row <-> model.Learning
// translation), generalized from a workspace-scoped learning to the
// Memory Subsystem's category-scoped one.
type learningStore struct {
	queries *sqlc.Queries
}

func (s *learningStore) ListLearnings(ctx context.Context, category string) ([]model.Learning, error) {
	rows, err := s.queries.ListLearningsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	return toLearningModels(rows), nil
}

func (s *learningStore) SaveLearning(ctx context.Context, l model.Learning) (model.Learning, error) {
	if err := s.queries.UpsertLearning(ctx, sqlc.UpsertLearningParams{
		ID:              l.ID,
		Type:            string(l.Type),
		Content:         l.Content,
		Category:        l.Category,
		Confidence:      l.Confidence,
		SourceTaskID:    l.SourceTaskID,
		ReinforcedCount: l.ReinforcedCount,
		LastUsed:        l.LastUsed,
	}); err != nil {
		return model.Learning{}, err
	}
	return l, nil
}

func (s *learningStore) ReinforceLearning(ctx context.Context, id int64) error {
	return s.queries.ReinforceLearning(ctx, id, time.Now())
}

func (s *learningStore) DeleteLearning(ctx context.Context, id int64) error {
	return s.queries.DeleteLearning(ctx, id)
}

func toLearningModels(rows []sqlc.LearningRow) []model.Learning {
	out := make([]model.Learning, len(rows))
	for i, row := range rows {
		out[i] = model.Learning{
			ID:              row.ID,
			Type:            model.LearningType(row.Type),
			Content:         row.Content,
			Category:        row.Category,
			Confidence:      row.Confidence,
			SourceTaskID:    row.SourceTaskID,
			ReinforcedCount: row.ReinforcedCount,
			LastUsed:        row.LastUsed,
			CreatedAt:       row.CreatedAt,
		}
	}
	return out
}
