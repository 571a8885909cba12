package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/model"
)

type cycleStore struct {
	queries *sqlc.Queries
}

func (s *cycleStore) Create(ctx context.Context, cycle model.IterationCycle) error {
	output, err := json.Marshal(cycle.Output)
	if err != nil {
		return fmt.Errorf("marshaling cycle output: %w", err)
	}
	evaluation, err := json.Marshal(cycle.Evaluation)
	if err != nil {
		return fmt.Errorf("marshaling cycle evaluation: %w", err)
	}
	usage, err := json.Marshal(cycle.Usage)
	if err != nil {
		return fmt.Errorf("marshaling cycle usage: %w", err)
	}
	skillsUsed, err := json.Marshal(cycle.SkillsUsed)
	if err != nil {
		return fmt.Errorf("marshaling cycle skills_used: %w", err)
	}

	return s.queries.CreateIterationCycle(ctx, sqlc.CreateIterationCycleParams{
		ID:             cycle.ID,
		TaskID:         cycle.TaskID,
		IterationIndex: cycle.IterationIndex,
		Phase:          cycle.Phase,
		Output:         output,
		Evaluation:     evaluation,
		Decision:       string(cycle.Decision),
		Usage:          usage,
		DurationMs:     cycle.Duration.Milliseconds(),
		SkillsUsed:     skillsUsed,
		Category:       cycle.Category,
	})
}

func (s *cycleStore) ListByTask(ctx context.Context, taskID int64) ([]model.IterationCycle, error) {
	rows, err := s.queries.ListIterationCyclesByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	out := make([]model.IterationCycle, 0, len(rows))
	for _, row := range rows {
		c, err := toIterationCycle(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func toIterationCycle(row sqlc.IterationCycleRow) (model.IterationCycle, error) {
	c := model.IterationCycle{
		ID:             row.ID,
		TaskID:         row.TaskID,
		IterationIndex: row.IterationIndex,
		Phase:          row.Phase,
		Decision:       model.IterationDecision(row.Decision),
		Duration:       time.Duration(row.DurationMs) * time.Millisecond,
		Category:       row.Category,
		CreatedAt:      row.CreatedAt,
	}

	if len(row.Output) > 0 && string(row.Output) != "null" {
		c.Output = &model.ExecutionOutput{}
		if err := json.Unmarshal(row.Output, c.Output); err != nil {
			return model.IterationCycle{}, fmt.Errorf("unmarshaling cycle output: %w", err)
		}
	}
	if len(row.Evaluation) > 0 && string(row.Evaluation) != "null" {
		c.Evaluation = &model.Evaluation{}
		if err := json.Unmarshal(row.Evaluation, c.Evaluation); err != nil {
			return model.IterationCycle{}, fmt.Errorf("unmarshaling cycle evaluation: %w", err)
		}
	}
	if len(row.Usage) > 0 {
		if err := json.Unmarshal(row.Usage, &c.Usage); err != nil {
			return model.IterationCycle{}, fmt.Errorf("unmarshaling cycle usage: %w", err)
		}
	}
	if len(row.SkillsUsed) > 0 {
		if err := json.Unmarshal(row.SkillsUsed, &c.SkillsUsed); err != nil {
			return model.IterationCycle{}, fmt.Errorf("unmarshaling cycle skills_used: %w", err)
		}
	}

	return c, nil
}
