package orchestrator_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/cost"
	"relaycore.dev/agentcore/internal/evaluator"
	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/orchestrator"
	"relaycore.dev/agentcore/internal/safety"
)

// judgeResponse builds a strict-format SCORES:/FINDINGS:/SUGGESTION: chat
// response scoring one "correctness" dimension, matching internal/evaluator's
// parser exactly.
func judgeResponse(score float64) llmprovider.ChatResponse {
	return llmprovider.ChatResponse{
		Content: "SCORES:\ncorrectness: " + trimScore(score) + "\nFINDINGS:\nSUGGESTION:\nkeep going",
		Usage:   model.TokenUsage{Input: 80, Output: 40},
	}
}

func trimScore(f float64) string {
	switch f {
	case 0.4:
		return "0.4"
	case 0.9:
		return "0.9"
	case 0.95:
		return "0.95"
	case 0.3:
		return "0.3"
	default:
		return "0.5"
	}
}

func execResponse(content string) llmprovider.ChatResponse {
	return llmprovider.ChatResponse{
		Content:    content,
		StopReason: llmprovider.StopReasonEndTurn,
		Usage:      model.TokenUsage{Input: 100, Output: 50},
	}
}

func rubrics() map[string]evaluator.Rubric {
	return map[string]evaluator.Rubric{
		"general": {Category: "general", Dimensions: []string{"correctness"}, Prompt: "judge it"},
	}
}

func newOrchestrator(execProvider, judgeProvider *stubProvider) (*orchestrator.Orchestrator, *fakeCycleStore, *fakeTaskStore) {
	tasks := newFakeTaskStore()
	cycles := newFakeCycleStore()

	o := orchestrator.New()
	o.Provider = execProvider
	o.Executor = &orchestrator.Executor{
		Provider:   execProvider,
		Dispatcher: nullDispatcher{},
	}
	o.Evaluator = &evaluator.Evaluator{
		Judge: &evaluator.Judge{Provider: judgeProvider, Rubrics: rubrics()},
	}
	o.Cost = cost.NewTracker()
	o.Tasks = tasks
	o.Cycles = cycles
	o.Usage = newFakeUsageStore()
	o.Learnings = newFakeLearningStore()
	o.SkillWriter = newFakeSkillWriter()

	return o, cycles, tasks
}

func baseTask() model.TaskInput {
	return model.TaskInput{ID: 1, Description: "implement the thing", Category: "general"}
}

var _ = Describe("Orchestrator.Run", func() {
	It("accepts on the second iteration once the score clears the threshold", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{
			execResponse("draft v1"),
			execResponse("final v2"),
		}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{
			judgeResponse(0.4),
			judgeResponse(0.95),
		}}
		o, _, _ := newOrchestrator(exec, judge)

		var events []model.ProgressEvent
		result, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    3,
			QualityThreshold: 0.9,
			Safety:           safety.Config{MaxTokens: 1_000_000},
		}, func(ev model.ProgressEvent) { events = append(events, ev) })

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(2))
		Expect(result.Decision).To(Equal(model.DecisionAccept))
		Expect(result.FinalScore).To(BeNumerically("~", 0.95, 0.001))
		Expect(result.Output).To(Equal("final v2"))

		var kinds []model.ProgressEventKind
		for _, ev := range events {
			kinds = append(kinds, ev.Kind)
		}
		Expect(kinds).To(Equal([]model.ProgressEventKind{
			model.ProgressPlanReady,
			model.ProgressIterationStart,
			model.ProgressIterationEnd,
			model.ProgressIterationStart,
			model.ProgressIterationEnd,
			model.ProgressComplete,
		}))

		Expect(events[2].Iteration).To(Equal(1))
		Expect(*events[2].Score).To(BeNumerically("~", 0.4, 0.001))
		Expect(events[2].Decision).To(Equal(model.DecisionContinue))

		Expect(events[4].Iteration).To(Equal(2))
		Expect(*events[4].Score).To(BeNumerically("~", 0.95, 0.001))
		Expect(events[4].Decision).To(Equal(model.DecisionAccept))
	})

	It("accepts on the very first iteration when the score already clears the threshold", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{execResponse("one-shot answer")}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{judgeResponse(0.95)}}
		o, _, _ := newOrchestrator(exec, judge)

		result, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    3,
			QualityThreshold: 0.9,
			Safety:           safety.Config{MaxTokens: 1_000_000},
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(1))
		Expect(result.Decision).To(Equal(model.DecisionAccept))
	})

	It("falls back to accept-best on the last iteration when the threshold is never cleared", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{execResponse("still not great")}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{judgeResponse(0.4)}}
		o, _, _ := newOrchestrator(exec, judge)

		result, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    1,
			QualityThreshold: 0.9,
			Safety:           safety.Config{MaxTokens: 1_000_000},
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(1))
		Expect(result.Decision).To(Equal(model.DecisionAcceptBest))
	})

	It("aborts once the token budget is exhausted", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{
			execResponse("burns tokens one"),
			execResponse("burns tokens two"),
		}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{
			judgeResponse(0.4),
			judgeResponse(0.4),
		}}
		o, _, _ := newOrchestrator(exec, judge)

		result, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    5,
			QualityThreshold: 0.99,
			Safety:           safety.Config{MaxTokens: 1},
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(1))
		Expect(result.Decision).To(Equal(model.DecisionAbortBudget))
	})

	It("aborts on a score regression beyond the configured threshold", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{
			execResponse("strong draft"),
			execResponse("regressed draft"),
		}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{
			judgeResponse(0.9),
			judgeResponse(0.3),
		}}
		o, _, _ := newOrchestrator(exec, judge)

		result, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    5,
			QualityThreshold: 0.95,
			// above the first score, so the skip-eval gate does not reuse
			// iteration 1's evaluation for iteration 2.
			SkipEvalConfidence: 0.95,
			Safety: safety.Config{
				MaxTokens:           1_000_000,
				RegressionThreshold: 0.3,
			},
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(2))
		Expect(result.Decision).To(Equal(model.DecisionAbortRegression))
		// best-cycle selection still prefers the stronger first iteration.
		Expect(result.FinalScore).To(BeNumerically("~", 0.9, 0.001))
	})

	It("returns ErrNoIterations when max_iterations is zero", func() {
		exec := &stubProvider{}
		judge := &stubProvider{}
		o, _, _ := newOrchestrator(exec, judge)

		_, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations: 0,
			Safety:        safety.Config{MaxTokens: 1_000_000},
		}, nil)

		Expect(err).To(MatchError(model.ErrNoIterations))
	})

	It("persists one cycle per executed iteration and the task's terminal result", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{execResponse("final answer")}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{judgeResponse(0.95)}}
		o, cycles, tasks := newOrchestrator(exec, judge)

		_, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    2,
			QualityThreshold: 0.9,
			Safety:           safety.Config{MaxTokens: 1_000_000},
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(cycles.cycles).To(HaveLen(1))
		Expect(tasks.results).To(HaveKey(int64(1)))
	})

	It("observes cancellation at the next iteration boundary, keeping the best cycle so far", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{
			execResponse("first pass"),
			execResponse("second pass"),
			execResponse("third pass"),
		}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{
			judgeResponse(0.4),
			judgeResponse(0.4),
			judgeResponse(0.4),
		}}
		o, _, _ := newOrchestrator(exec, judge)

		ctx, cancel := context.WithCancel(context.Background())
		iterations := 0
		result, err := o.Run(ctx, model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    5,
			QualityThreshold: 0.99,
			Safety:           safety.Config{MaxTokens: 1_000_000},
		}, func(ev model.ProgressEvent) {
			if ev.Kind == model.ProgressIterationEnd {
				iterations++
				if iterations == 1 {
					cancel()
				}
			}
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Iterations).To(Equal(1))
	})
})

var _ = Describe("Orchestrator.Run skip-eval decisioning", func() {
	It("never persists SkipEval as the final decision, even when the eval cache is hit", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{
			execResponse("identical output"),
			execResponse("identical output"),
		}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{
			judgeResponse(0.4),
		}}
		o, cycles, _ := newOrchestrator(exec, judge)

		result, err := o.Run(context.Background(), model.SessionContext{}, baseTask(), orchestrator.Config{
			MaxIterations:    2,
			QualityThreshold: 0.9,
			Safety:           safety.Config{MaxTokens: 1_000_000},
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Decision).To(Equal(model.DecisionAcceptBest))
		for _, c := range cycles.cycles {
			Expect(c.Decision).NotTo(Equal(model.DecisionSkipEval))
		}
		// only one judge call: the second iteration borrowed the first's
		// evaluation outright because the output hash was identical.
		Expect(judge.calls).To(Equal(1))
	})
})

var _ = Describe("Orchestrator.Run learning and skill effectiveness wiring", func() {
	It("folds the final score into every skill used and runs decay", func() {
		exec := &stubProvider{responses: []llmprovider.ChatResponse{execResponse("final answer")}}
		judge := &stubProvider{responses: []llmprovider.ChatResponse{judgeResponse(0.95)}}
		o, _, _ := newOrchestrator(exec, judge)

		skillWriter := newFakeSkillWriter()
		o.SkillWriter = skillWriter

		sc := model.SessionContext{RankedSkills: []model.RankedSkill{
			{Skill: model.Skill{Name: "write-tests", Category: "general"}, Score: 0.8},
		}}

		result, err := o.Run(context.Background(), sc, baseTask(), orchestrator.Config{
			MaxIterations:    1,
			QualityThreshold: 0.9,
			Safety:           safety.Config{MaxTokens: 1_000_000},
		}, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.SkillsUsed).To(ConsistOf("write-tests"))
		Expect(skillWriter.upserts).To(HaveLen(1))
		Expect(skillWriter.upserts[0].SkillName).To(Equal("write-tests"))
		Expect(skillWriter.upserts[0].AvgScore).To(BeNumerically("~", 0.95, 0.001))
	})
})

var _ = Describe("Executor.Run", func() {
	It("stops after the configured tool-loop circuit breaker trips", func() {
		looping := llmprovider.ChatResponse{
			Content:    "",
			StopReason: llmprovider.StopReasonToolUse,
			ToolCalls:  []llmprovider.ToolCall{{ID: "1", Name: "echo", Arguments: "{}"}},
		}
		exec := &stubProvider{responses: []llmprovider.ChatResponse{looping}}

		e := &orchestrator.Executor{
			Provider:   exec,
			Dispatcher: loopingDispatcher{},
			ToolLoop:   safetyLoopDetector(),
		}

		_, level, err := e.Run(context.Background(), "system", nil, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(level).To(Equal(safety.ToolLoopCircuitBreaker))
	})
})

// loopingDispatcher always reports success so the executor keeps calling the
// provider, which in turn keeps requesting the same tool.
type loopingDispatcher struct{}

func (loopingDispatcher) Dispatch(_ context.Context, _ model.ToolCall) (string, []string, error) {
	return "ok", nil, nil
}

func safetyLoopDetector() safety.ToolLoopDetector {
	return safety.ToolLoopDetector{Warning: 2, Critical: 3, CircuitBreaker: 4}
}
