package memory

import (
	"context"
	"sort"

	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/tokenopt"
)

// recallBudgetTokens bounds the whole recall pass when the caller supplies
// no explicit budget (the daemon and relayctl both pass 0).
const recallBudgetTokens = 2000

const (
	maxAntiPatterns = 5
	maxTopSkills    = 3
	maxHeuristics   = 5
)

// Recaller assembles a RecallResult from the learning and skill stores.
type Recaller struct {
	Learnings LearningStore
	Skills    SkillStore
	Similarity SimilarityIndex
}

// Recall runs the deterministic, token-budgeted priority order from
// spec §4.5: anti-patterns, then top skills for the category, then
// heuristics, then (if a SimilarityIndex is set and budget remains)
// preference learnings ranked by similarity to the task description. Each bucket
// stops adding items the instant the next one would exceed budget; the
// budget itself is never exceeded.
func (r *Recaller) Recall(ctx context.Context, category, taskDescription string, budget int64) (model.RecallResult, error) {
	if budget <= 0 {
		budget = recallBudgetTokens
	}

	var result model.RecallResult
	var used int64

	all, err := r.Learnings.ListLearnings(ctx, category)
	if err != nil {
		return result, err
	}

	antiPatterns := filterAndSortLearnings(all, model.LearningTypeAntiPattern)
	for _, l := range antiPatterns {
		if len(result.AntiPatterns) >= maxAntiPatterns {
			break
		}
		cost := tokenopt.EstimateTokens(l.Content)
		if used+cost > budget {
			break
		}
		result.AntiPatterns = append(result.AntiPatterns, l)
		used += cost
	}

	skills, err := r.topSkillsForCategory(ctx, category)
	if err != nil {
		return result, err
	}
	for _, rs := range skills {
		if len(result.TopSkills) >= maxTopSkills {
			break
		}
		cost := tokenopt.EstimateTokens(rs.Skill.Description)
		if used+cost > budget {
			break
		}
		result.TopSkills = append(result.TopSkills, rs)
		used += cost
	}

	heuristics := filterAndSortLearnings(all, model.LearningTypeHeuristic)
	for _, l := range heuristics {
		if len(result.Heuristics) >= maxHeuristics {
			break
		}
		cost := tokenopt.EstimateTokens(l.Content)
		if used+cost > budget {
			break
		}
		result.Heuristics = append(result.Heuristics, l)
		used += cost
	}

	if r.Similarity != nil && used < budget {
		preference := filterAndSortLearnings(all, model.LearningTypePreference)
		similar, err := r.Similarity.Similar(ctx, taskDescription, preference)
		if err == nil {
			for _, l := range similar {
				cost := tokenopt.EstimateTokens(l.Content)
				if used+cost > budget {
					break
				}
				result.Similar = append(result.Similar, l)
				used += cost
			}
		}
	}

	result.TokensUsed = used
	return result, nil
}

func (r *Recaller) topSkillsForCategory(ctx context.Context, category string) ([]model.RankedSkill, error) {
	skills, err := r.Skills.ListSkills(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]model.RankedSkill, 0, len(skills))
	for _, s := range skills {
		if s.Category != "" && s.Category != category {
			continue
		}
		eff, err := r.Skills.Effectiveness(ctx, s.Name, category)
		if err != nil {
			continue
		}
		ranked = append(ranked, model.RankedSkill{Skill: s, Score: eff.AvgScore})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

func filterAndSortLearnings(all []model.Learning, t model.LearningType) []model.Learning {
	out := make([]model.Learning, 0, len(all))
	for _, l := range all {
		if l.Type == t {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}
