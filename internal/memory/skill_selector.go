package memory

import (
	"context"
	"sort"
	"strings"

	"relaycore.dev/agentcore/internal/model"
)

const (
	weightExplicitMention  = 1.0
	weightEffectiveness    = 0.4
	weightSemanticSim      = 0.3
	weightRecallSuggested  = 0.2
	weightUserApproved     = 0.3

	effectivenessSampleCap = 10.0

	skillSelectorDropThreshold = 0.1
	skillSelectorTopN          = 5
)

// UserApproval records a user-approved-pattern signal for one skill: a
// confidence the user attached to approving it for reuse.
type UserApproval struct {
	SkillName  string
	Confidence float64
}

// SkillSelector ranks the skill catalog for one task per spec §4.6's
// weighted-signal table.
type SkillSelector struct {
	Skills SkillStore
}

// Select scores every eligible (kind=Task) skill against taskDescription
// and category, returning the top skillSelectorTopN in score DESC order. A
// skill scoring at or below skillSelectorDropThreshold is dropped unless it
// was explicitly mentioned in the task description.
func (s *SkillSelector) Select(ctx context.Context, taskDescription, category string, recallSuggested map[string]bool, approvals []UserApproval) ([]model.RankedSkill, error) {
	skills, err := s.Skills.ListSkills(ctx)
	if err != nil {
		return nil, err
	}

	approvalByName := make(map[string]float64, len(approvals))
	for _, a := range approvals {
		approvalByName[a.SkillName] = a.Confidence
	}

	lowerDescription := strings.ToLower(taskDescription)

	ranked := make([]model.RankedSkill, 0, len(skills))
	for _, sk := range skills {
		if sk.Kind != model.SkillKindTask {
			continue
		}

		var score float64
		explicit := strings.Contains(lowerDescription, strings.ToLower(sk.Name))
		if explicit {
			score += weightExplicitMention
		}

		if eff, err := s.Skills.Effectiveness(ctx, sk.Name, category); err == nil && eff.SampleCount > 0 {
			n := float64(eff.SampleCount)
			if n > effectivenessSampleCap {
				n = effectivenessSampleCap
			}
			score += weightEffectiveness * eff.AvgScore * (n / effectivenessSampleCap)
		}

		// Semantic similarity is reserved: no embedding comparator is wired
		// yet, so this signal always contributes 0 until one is.
		score += weightSemanticSim * 0.0

		if recallSuggested[sk.Name] {
			score += weightRecallSuggested
		}

		if confidence, ok := approvalByName[sk.Name]; ok {
			score += weightUserApproved * confidence
		}

		if score > 1.0 {
			score = 1.0
		}

		if score <= skillSelectorDropThreshold && !explicit {
			continue
		}

		ranked = append(ranked, model.RankedSkill{Skill: sk, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if len(ranked) > skillSelectorTopN {
		ranked = ranked[:skillSelectorTopN]
	}
	return ranked, nil
}
