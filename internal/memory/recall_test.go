package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"context"

	"relaycore.dev/agentcore/internal/memory"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("Recaller.Recall", func() {
	It("returns anti-patterns, top skills, and heuristics in priority order", func() {
		learnings := newFakeLearningStore(
			model.Learning{Type: model.LearningTypeAntiPattern, Category: "coding", Content: "avoid global mutable state", Confidence: 0.9},
			model.Learning{Type: model.LearningTypeAntiPattern, Category: "coding", Content: "avoid skipping error checks", Confidence: 0.6},
			model.Learning{Type: model.LearningTypeHeuristic, Category: "coding", Content: "prefer small PRs", Confidence: 0.8},
		)
		skills := newFakeSkillStore()
		skills.skills = []model.Skill{{Name: "refactor", Kind: model.SkillKindTask, Category: "coding", Description: "refactor code safely"}}
		skills.setEffectiveness("refactor", "coding", 0.9, 5)

		r := &memory.Recaller{Learnings: learnings, Skills: skills}
		result, err := r.Recall(context.Background(), "coding", "refactor the auth module", 2000)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.AntiPatterns).To(HaveLen(2))
		Expect(result.AntiPatterns[0].Content).To(ContainSubstring("global mutable state"))
		Expect(result.Heuristics).To(HaveLen(1))
		Expect(result.TopSkills).To(HaveLen(1))
		Expect(result.TokensUsed).To(BeNumerically(">", 0))
		Expect(result.IsEmpty()).To(BeFalse())
	})

	It("stops each bucket before exceeding the token budget", func() {
		longContent := ""
		for i := 0; i < 200; i++ {
			longContent += "word "
		}
		learnings := newFakeLearningStore(
			model.Learning{Type: model.LearningTypeAntiPattern, Category: "coding", Content: longContent, Confidence: 0.9},
			model.Learning{Type: model.LearningTypeAntiPattern, Category: "coding", Content: longContent, Confidence: 0.8},
		)
		skills := newFakeSkillStore()

		r := &memory.Recaller{Learnings: learnings, Skills: skills}
		result, err := r.Recall(context.Background(), "coding", "task", 50)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.AntiPatterns).To(HaveLen(0))
		Expect(result.TokensUsed).To(BeNumerically("<=", 50))
	})

	It("reports empty recall for a fresh category", func() {
		learnings := newFakeLearningStore()
		skills := newFakeSkillStore()

		r := &memory.Recaller{Learnings: learnings, Skills: skills}
		result, err := r.Recall(context.Background(), "unseen", "task", 2000)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsEmpty()).To(BeTrue())
	})
})
