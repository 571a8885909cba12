package tokenopt_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/tokenopt"
)

var _ = Describe("EstimateTokens", func() {
	It("estimates as ceil(code_points/4)", func() {
		Expect(tokenopt.EstimateTokens("")).To(Equal(int64(0)))
		Expect(tokenopt.EstimateTokens("abcd")).To(Equal(int64(1)))
		Expect(tokenopt.EstimateTokens("abcde")).To(Equal(int64(2)))
	})

	It("counts unicode code points, not bytes", func() {
		// "é" is 2 bytes but 1 code point.
		s := strings.Repeat("é", 4)
		Expect(tokenopt.EstimateTokens(s)).To(Equal(int64(1)))
	})
})

var _ = Describe("BuildSystemPrompt", func() {
	It("elides sections with no content", func() {
		sc := model.SessionContext{Soul: "You are an agent."}
		prompt := tokenopt.BuildSystemPrompt(sc, model.TaskInput{Description: "do the thing"}, model.Plan{})

		Expect(prompt).To(ContainSubstring("## Identity"))
		Expect(prompt).To(ContainSubstring("## Task"))
		Expect(prompt).NotTo(ContainSubstring("## Plan"))
		Expect(prompt).NotTo(ContainSubstring("## Active Skills"))
		Expect(prompt).NotTo(ContainSubstring("## Memory Recall"))
		Expect(prompt).NotTo(ContainSubstring("## Available Tools"))
	})

	It("inlines only the top-3 ranked skills' bodies", func() {
		sc := model.SessionContext{
			RankedSkills: []model.RankedSkill{
				{Skill: model.Skill{Name: "a", Body: "BODY_A"}, Score: 0.9},
				{Skill: model.Skill{Name: "b", Body: "BODY_B"}, Score: 0.8},
				{Skill: model.Skill{Name: "c", Body: "BODY_C"}, Score: 0.7},
				{Skill: model.Skill{Name: "d", Body: "BODY_D", Description: "d desc"}, Score: 0.6},
			},
		}
		prompt := tokenopt.BuildSystemPrompt(sc, model.TaskInput{Description: "x"}, model.Plan{})

		Expect(prompt).To(ContainSubstring("BODY_A"))
		Expect(prompt).To(ContainSubstring("BODY_C"))
		Expect(prompt).NotTo(ContainSubstring("BODY_D"))
		Expect(prompt).To(ContainSubstring("d: d desc"))
	})

	It("prefixes anti-patterns with a warning glyph ahead of heuristics", func() {
		sc := model.SessionContext{
			Recall: model.RecallResult{
				AntiPatterns: []model.Learning{{Content: "don't do X"}},
				Heuristics:   []model.Learning{{Content: "prefer Y", Confidence: 0.9}},
			},
		}
		prompt := tokenopt.BuildSystemPrompt(sc, model.TaskInput{Description: "x"}, model.Plan{})

		warnIdx := strings.Index(prompt, "⚠ don't do X")
		heuristicIdx := strings.Index(prompt, "[high] prefer Y")
		Expect(warnIdx).To(BeNumerically(">=", 0))
		Expect(heuristicIdx).To(BeNumerically(">", warnIdx))
	})
})

var _ = Describe("BuildIterationMessages", func() {
	It("returns no messages for iteration 0", func() {
		Expect(tokenopt.BuildIterationMessages(0, nil)).To(BeEmpty())
	})

	It("returns compressed output and delta feedback for iteration 1", func() {
		prev := &model.IterationCycle{
			Output: &model.ExecutionOutput{Content: "previous output"},
			Evaluation: &model.Evaluation{
				Findings: []model.Finding{
					{Severity: model.SeverityBlocker, Title: "broken build", Fix: "run go mod tidy"},
					{Severity: model.SeveritySuggestion, Title: "style nit"},
				},
			},
		}

		msgs := tokenopt.BuildIterationMessages(1, prev)
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].Role).To(Equal("assistant"))
		Expect(msgs[0].Content).To(Equal("previous output"))
		Expect(msgs[1].Role).To(Equal("user"))
		Expect(msgs[1].Content).To(ContainSubstring("broken build: run go mod tidy"))
		Expect(msgs[1].Content).NotTo(ContainSubstring("style nit"))
	})

	It("truncates long output to 2000 code points with a marker", func() {
		long := strings.Repeat("x", 2500)
		prev := &model.IterationCycle{Output: &model.ExecutionOutput{Content: long}}

		msgs := tokenopt.BuildIterationMessages(1, prev)
		Expect(msgs[0].Content).To(ContainSubstring("...[truncated, 2500 chars total]"))
		Expect(len(msgs[0].Content)).To(BeNumerically("<", 2500))
	})

	It("states no critical findings remain when all findings are suggestions", func() {
		prev := &model.IterationCycle{
			Output:     &model.ExecutionOutput{Content: "ok"},
			Evaluation: &model.Evaluation{Findings: []model.Finding{{Severity: model.SeveritySuggestion}}},
		}
		msgs := tokenopt.BuildIterationMessages(1, prev)
		Expect(msgs[1].Content).To(Equal("No critical findings remain."))
	})
})

var _ = Describe("Assemble overflow pruning", func() {
	It("returns context as-is when under the window limit", func() {
		sc := model.SessionContext{Soul: "agent", ModelContextWindow: 128_000}
		ec := tokenopt.Assemble(sc, model.TaskInput{Description: "task"}, model.Plan{}, 0, nil)
		Expect(ec.Messages).To(BeEmpty())
	})

	It("drops oldest messages and prepends a removal notice when over budget", func() {
		sc := model.SessionContext{ModelContextWindow: 20_050}
		bigOutput := strings.Repeat("a", 8000)
		prev := &model.IterationCycle{Output: &model.ExecutionOutput{Content: bigOutput}}

		ec := tokenopt.Assemble(sc, model.TaskInput{Description: "task"}, model.Plan{}, 1, prev)
		Expect(ec.TokenEstimate).To(BeNumerically("<=", 50))
		Expect(ec.Messages[0].Content).To(ContainSubstring("1 earlier message(s) removed"))
	})
})

var _ = Describe("RefinePlan", func() {
	It("strips prior Fix steps and appends one per non-suggestion finding with a fix", func() {
		plan := model.Plan{Steps: []model.PlanStep{
			{Description: "Fix: stale issue - old fix"},
			{Description: "original step"},
		}}
		eval := &model.Evaluation{Findings: []model.Finding{
			{Severity: model.SeverityBlocker, Title: "new issue", Fix: "do the fix"},
			{Severity: model.SeveritySuggestion, Title: "ignored", Fix: "ignored fix"},
		}}

		refined := tokenopt.RefinePlan(plan, eval)

		Expect(refined.Steps).To(HaveLen(2))
		Expect(refined.Steps[0].Description).To(Equal("original step"))
		Expect(refined.Steps[1].Description).To(Equal("Fix: new issue - do the fix"))
	})
})

var _ = Describe("ExecutionContext", func() {
	It("is a plain struct usable without the provider package cycle", func() {
		var ec tokenopt.ExecutionContext
		ec.Messages = []llmprovider.Message{{Role: "user", Content: "hi"}}
		Expect(ec.Messages).To(HaveLen(1))
	})
})
