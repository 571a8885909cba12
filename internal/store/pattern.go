package store

import (
	"context"
	"encoding/json"
	"fmt"

	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/model"
)

type patternStore struct {
	queries *sqlc.Queries
}

func (s *patternStore) ListApproved(ctx context.Context) ([]model.ScheduledPattern, error) {
	rows, err := s.queries.ListApprovedPatterns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.ScheduledPattern, 0, len(rows))
	for _, row := range rows {
		var template model.TaskInput
		if len(row.TaskTemplate) > 0 {
			if err := json.Unmarshal(row.TaskTemplate, &template); err != nil {
				return nil, fmt.Errorf("unmarshaling pattern task template: %w", err)
			}
		}
		out = append(out, model.ScheduledPattern{
			ID:           row.ID,
			Description:  row.Description,
			Frequency:    row.Frequency,
			TaskTemplate: template,
			Status:       model.PatternStatus(row.Status),
		})
	}
	return out, nil
}
