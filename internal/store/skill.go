package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/model"
)

// skillStore implements memory.SkillStore.
type skillStore struct {
	queries *sqlc.Queries
}

func (s *skillStore) ListSkills(ctx context.Context) ([]model.Skill, error) {
	rows, err := s.queries.ListSkills(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Skill, len(rows))
	for i, row := range rows {
		out[i] = model.Skill{
			Name:        row.Name,
			Kind:        model.SkillKind(row.Kind),
			Description: row.Description,
			Body:        row.Body,
			Category:    row.Category,
		}
	}
	return out, nil
}

func (s *skillStore) Effectiveness(ctx context.Context, skillName, category string) (model.SkillEffectiveness, error) {
	row, err := s.queries.GetSkillEffectiveness(ctx, skillName, category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SkillEffectiveness{SkillName: skillName, TaskCategory: category}, nil
		}
		return model.SkillEffectiveness{}, err
	}
	return model.SkillEffectiveness{
		SkillName:    row.SkillName,
		TaskCategory: row.TaskCategory,
		AvgScore:     row.AvgScore,
		SampleCount:  row.SampleCount,
		LastUsed:     row.LastUsed,
	}, nil
}

// UpsertEffectiveness persists an updated running-mean effectiveness row,
// per spec §3: avg' = (avg*n + new)/(n+1); n' = n+1. Not part of
// memory.SkillStore (the Memory Subsystem only reads effectiveness); the
// write happens after a task completes, driven by whoever owns that
// outcome (the orchestrator).
func (s *skillStore) UpsertEffectiveness(ctx context.Context, eff model.SkillEffectiveness) error {
	return s.queries.UpsertSkillEffectiveness(ctx, sqlc.SkillEffectivenessRow{
		SkillName:    eff.SkillName,
		TaskCategory: eff.TaskCategory,
		AvgScore:     eff.AvgScore,
		SampleCount:  eff.SampleCount,
		LastUsed:     eff.LastUsed,
	})
}
