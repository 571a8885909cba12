package safety_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/safety"
)

var _ = Describe("Checker", func() {
	var budget *model.TokenBudget

	BeforeEach(func() {
		budget = model.NewTokenBudget(1000)
	})

	It("aborts on budget before any other check", func() {
		budget.Deduct("execute", 1000, 0)
		c := &safety.Checker{Config: safety.Config{MaxTokens: 1000, MaxCostUSD: 100, MaxDurationSecs: 100}}
		Expect(c.Check(budget, 0, nil)).To(Equal(model.DecisionAbortBudget))
	})

	It("aborts on cost when budget is fine", func() {
		budget.Deduct("execute", 10, 5.0)
		c := &safety.Checker{Config: safety.Config{MaxTokens: 1000, MaxCostUSD: 5.0}}
		Expect(c.Check(budget, 0, nil)).To(Equal(model.DecisionAbortBudget))
	})

	It("aborts on timeout when budget and cost are fine", func() {
		c := &safety.Checker{Config: safety.Config{MaxTokens: 1000, MaxDurationSecs: 10}}
		Expect(c.Check(budget, 20*time.Second, nil)).To(Equal(model.DecisionAbortTimeout))
	})

	It("aborts on regression when score drops beyond threshold across cycles", func() {
		c := &safety.Checker{Config: safety.Config{MaxTokens: 1000, RegressionThreshold: 0.1}}
		cycles := []model.IterationCycle{
			{Evaluation: &model.Evaluation{Score: 0.9}},
			{Evaluation: &model.Evaluation{Score: 0.5}},
		}
		Expect(c.Check(budget, 0, cycles)).To(Equal(model.DecisionAbortRegression))
	})

	It("returns no decision when nothing is violated", func() {
		c := &safety.Checker{Config: safety.Config{MaxTokens: 1000, MaxDurationSecs: 100}}
		Expect(c.Check(budget, 0, nil)).To(BeEmpty())
	})
})

var _ = Describe("ToolLoopDetector", func() {
	It("escalates through warning, critical, circuit_breaker in order", func() {
		d := &safety.ToolLoopDetector{Warning: 2, Critical: 4, CircuitBreaker: 6}

		var levels []safety.ToolLoopLevel
		for i := 0; i < 6; i++ {
			levels = append(levels, d.RecordCall())
		}

		Expect(levels[1]).To(Equal(safety.ToolLoopWarning))
		Expect(levels[3]).To(Equal(safety.ToolLoopCritical))
		Expect(levels[5]).To(Equal(safety.ToolLoopCircuitBreaker))
	})

	It("resets the running count", func() {
		d := &safety.ToolLoopDetector{Warning: 1}
		d.RecordCall()
		d.Reset()
		Expect(d.RecordCall()).To(Equal(safety.ToolLoopWarning))
	})
})
