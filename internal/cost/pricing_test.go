package cost_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/cost"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("IsLocalModel", func() {
	It("recognizes local model markers case-insensitively", func() {
		Expect(cost.IsLocalModel("Llama-3.1-70b")).To(BeTrue())
		Expect(cost.IsLocalModel("mistral-large")).To(BeTrue())
		Expect(cost.IsLocalModel("gpt-4o")).To(BeFalse())
	})
})

var _ = Describe("Compute", func() {
	It("is free for local models regardless of usage", func() {
		Expect(cost.Compute("qwen2.5-coder", 1_000_000, 1_000_000, 0, 0)).To(Equal(0.0))
	})

	It("falls back to the unknown-model price for unrecognized names", func() {
		got := cost.Compute("some-new-model", 1_000_000, 0, 0, 0)
		Expect(got).To(Equal(1.0))
	})

	It("applies the cache-read and cache-write multipliers to the input price", func() {
		full := cost.Compute("gpt-4o", 1_000_000, 0, 0, 0)
		cacheRead := cost.Compute("gpt-4o", 0, 0, 1_000_000, 0)
		cacheWrite := cost.Compute("gpt-4o", 0, 0, 0, 1_000_000)

		Expect(cacheRead).To(BeNumerically("~", full*0.1, 1e-9))
		Expect(cacheWrite).To(BeNumerically("~", full*1.25, 1e-9))
	})
})

var _ = Describe("Tracker", func() {
	It("aggregates total cost, tokens, and calls across events", func() {
		tr := cost.NewTracker()
		tr.Record(1, "gpt-4o-mini", "execute", model.TokenUsage{Input: 1000, Output: 500})
		tr.Record(1, "gpt-4o-mini", "evaluate", model.TokenUsage{Input: 200, Output: 100})

		report := tr.Report()
		Expect(report.TotalCalls).To(Equal(int64(2)))
		Expect(report.TotalTokens).To(Equal(int64(1800)))
		Expect(report.ByModel).To(HaveLen(1))
		Expect(report.ByPhase).To(HaveLen(2))
	})

	It("reports per-task cost and tokens", func() {
		tr := cost.NewTracker()
		tr.Record(1, "gpt-4o", "execute", model.TokenUsage{Input: 1000, Output: 500})
		tr.Record(2, "gpt-4o", "execute", model.TokenUsage{Input: 2000, Output: 500})

		costUSD, tokens := tr.ForTask(1)
		Expect(tokens).To(Equal(int64(1500)))
		Expect(costUSD).To(BeNumerically(">", 0))
	})
})
