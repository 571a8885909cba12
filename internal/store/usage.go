package store

import (
	"context"

	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/model"
)

type usageStore struct {
	queries *sqlc.Queries
}

func (s *usageStore) Create(ctx context.Context, event model.UsageEvent) error {
	return s.queries.CreateUsageEvent(ctx, sqlc.UsageEventRow{
		ID:               event.ID,
		TaskID:           event.TaskID,
		Model:            event.Model,
		Phase:            event.Phase,
		InputTokens:      event.Usage.Input,
		OutputTokens:     event.Usage.Output,
		CacheReadTokens:  event.Usage.CacheRead,
		CacheWriteTokens: event.Usage.CacheWrite,
		CostUSD:          event.CostUSD,
	})
}

func (s *usageStore) ListByTask(ctx context.Context, taskID int64) ([]model.UsageEvent, error) {
	rows, err := s.queries.ListUsageEventsByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	out := make([]model.UsageEvent, len(rows))
	for i, row := range rows {
		out[i] = model.UsageEvent{
			ID:     row.ID,
			TaskID: row.TaskID,
			Model:  row.Model,
			Phase:  row.Phase,
			Usage: model.TokenUsage{
				Input:      row.InputTokens,
				Output:     row.OutputTokens,
				CacheRead:  row.CacheReadTokens,
				CacheWrite: row.CacheWriteTokens,
			},
			CostUSD:   row.CostUSD,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}
