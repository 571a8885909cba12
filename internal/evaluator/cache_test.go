package evaluator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/evaluator"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("ShouldSkipEval", func() {
	It("returns false with no prior cycle", func() {
		Expect(evaluator.ShouldSkipEval("out", nil, evaluator.DefaultSkipEvalConfidence)).To(BeFalse())
	})

	It("returns true when output is byte-identical to the previous cycle's", func() {
		prev := &model.IterationCycle{Output: &model.ExecutionOutput{Content: "same output"}}
		Expect(evaluator.ShouldSkipEval("same output", prev, evaluator.DefaultSkipEvalConfidence)).To(BeTrue())
	})

	It("returns true when the prior cycle confidently passed", func() {
		prev := &model.IterationCycle{
			Output: &model.ExecutionOutput{Content: "old output"},
			Evaluation: &model.Evaluation{
				Score:                0.9,
				TestsPassed:          true,
				StaticAnalysisPassed: true,
			},
		}
		Expect(evaluator.ShouldSkipEval("new output", prev, evaluator.DefaultSkipEvalConfidence)).To(BeTrue())
	})

	It("returns false when the prior cycle's score is below threshold", func() {
		prev := &model.IterationCycle{
			Output: &model.ExecutionOutput{Content: "old output"},
			Evaluation: &model.Evaluation{
				Score:                0.5,
				TestsPassed:          true,
				StaticAnalysisPassed: true,
			},
		}
		Expect(evaluator.ShouldSkipEval("new output", prev, evaluator.DefaultSkipEvalConfidence)).To(BeFalse())
	})
})
