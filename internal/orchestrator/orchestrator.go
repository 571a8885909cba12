// Package orchestrator drives the iterative plan → execute → evaluate →
// refine loop over a bounded number of iterations, wiring together the
// Token Optimizer, the Executor, the Evaluator Framework, the Safety
// Checker, the Cost Tracker, and the Persistent Store.
package orchestrator

import (
	"context"
	"time"

	"relaycore.dev/agentcore/common/id"
	"relaycore.dev/agentcore/internal/cost"
	"relaycore.dev/agentcore/internal/evaluator"
	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/memory"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/safety"
	"relaycore.dev/agentcore/internal/store"
	"relaycore.dev/agentcore/internal/tokenopt"
)

const (
	phaseExecute  = "execute"
	phaseEvaluate = "evaluate"
)

// Config bounds one task's run.
type Config struct {
	MaxIterations      int
	QualityThreshold   float64
	SkipEvalConfidence float64 // <=0 defaults to evaluator.DefaultSkipEvalConfidence
	Safety             safety.Config
}

// Orchestrator wires every component the core loop depends on. Store
// fields are optional: a nil store is treated as "don't persist this
// concern" so the same Orchestrator can run fully in-memory in tests.
type Orchestrator struct {
	Provider  llmprovider.Provider
	Executor  *Executor
	Evaluator *evaluator.Evaluator
	Safety    *safety.Checker
	Cost      *cost.Tracker

	Tasks       store.TaskStore
	Cycles      store.CycleStore
	Usage       store.UsageStore
	Learnings   memory.LearningStore
	SkillWriter store.SkillEffectivenessWriter

	Extractor *memory.Extractor
	Decayer   *memory.Decayer

	WorkDir string

	// now is overridable for deterministic tests.
	now func() time.Time
}

// New returns an Orchestrator with its clock defaulted to time.Now.
func New() *Orchestrator {
	return &Orchestrator{now: time.Now}
}

func (o *Orchestrator) clock() time.Time {
	if o.now == nil {
		return time.Now()
	}
	return o.now()
}

// Run drives the bounded iteration loop for one task and returns its
// terminal TaskResult. progress, if non-nil, receives every ProgressEvent
// the loop emits, in order.
func (o *Orchestrator) Run(ctx context.Context, sc model.SessionContext, task model.TaskInput, cfg Config, progress func(model.ProgressEvent)) (model.TaskResult, error) {
	emit := func(ev model.ProgressEvent) {
		if progress == nil {
			return
		}
		ev.TaskID = task.ID
		ev.At = o.clock()
		progress(ev)
	}

	if o.Tasks != nil {
		_ = o.Tasks.Create(ctx, task) // StoreFailure: non-fatal, the run proceeds without the task row
	}

	if cfg.MaxIterations <= 0 {
		return model.TaskResult{}, model.ErrNoIterations
	}

	skipEvalConfidence := cfg.SkipEvalConfidence
	if skipEvalConfidence <= 0 {
		skipEvalConfidence = evaluator.DefaultSkipEvalConfidence
	}

	budget := model.NewTokenBudget(cfg.Safety.MaxTokens)
	checker := o.Safety
	if checker == nil {
		checker = &safety.Checker{Config: cfg.Safety}
	}

	plan := model.Plan{
		Steps:                []model.PlanStep{{Description: task.Description}},
		EstimatedIterations:  cfg.MaxIterations,
		EstimatedTokenBudget: cfg.Safety.MaxTokens,
	}
	emit(model.ProgressEvent{Kind: model.ProgressPlanReady, Plan: &plan})

	skillNames := make([]string, len(sc.RankedSkills))
	for i, rs := range sc.RankedSkills {
		skillNames[i] = rs.Skill.Name
	}

	var cycles []model.IterationCycle
	var prev *model.IterationCycle
	bestIdx := -1

	// Iterations and completion run on a context that ignores ctx's
	// cancellation, so a cancel never interrupts a provider call mid-flight.
	iterCtx := context.WithoutCancel(ctx)

	for i := 0; i < cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			break // cancellation observed at the iteration boundary only
		}

		emit(model.ProgressEvent{Kind: model.ProgressIterationStart, Iteration: i + 1})

		cycle, warnLevel := o.runIteration(iterCtx, sc, task, plan, i, cfg, prev, budget, checker, cycles, skillNames, skipEvalConfidence, emit)
		if warnLevel != safety.ToolLoopNone {
			emit(model.ProgressEvent{Kind: model.ProgressSafetyWarning, Iteration: i + 1, Warning: "tool_loop_" + string(warnLevel)})
		}
		if cycle == nil {
			break // provider transport failure with nothing yet to fall back on
		}

		cycles = append(cycles, *cycle)
		idx := len(cycles) - 1
		if bestIdx == -1 || cycles[idx].Score() > cycles[bestIdx].Score() {
			bestIdx = idx
		}

		score := cycles[idx].Score()
		emit(model.ProgressEvent{Kind: model.ProgressIterationEnd, Iteration: i + 1, Score: &score, Decision: cycle.Decision})

		if cycle.Decision.IsAbort() || cycle.Decision == model.DecisionAccept || cycle.Decision == model.DecisionAcceptBest {
			break
		}

		plan = tokenopt.RefinePlan(plan, cycle.Evaluation)
		prevCopy := cycles[idx]
		prev = &prevCopy
	}

	if len(cycles) == 0 {
		return model.TaskResult{}, model.ErrNoIterations
	}

	result := o.finalize(iterCtx, task, cycles, bestIdx, budget, skillNames)
	emit(model.ProgressEvent{Kind: model.ProgressComplete, Result: &result})
	return result, nil
}

// runIteration executes exactly one iteration: assemble, execute,
// eval-or-skip, deduct, safety-gate, decide. A nil cycle means the
// iteration could not even be recorded (a provider transport failure);
// the caller stops the run in that case.
func (o *Orchestrator) runIteration(
	ctx context.Context,
	sc model.SessionContext,
	task model.TaskInput,
	plan model.Plan,
	i int,
	cfg Config,
	prev *model.IterationCycle,
	budget *model.TokenBudget,
	checker *safety.Checker,
	priorCycles []model.IterationCycle,
	skillNames []string,
	skipEvalConfidence float64,
	emit func(model.ProgressEvent),
) (*model.IterationCycle, safety.ToolLoopLevel) {
	iterStart := o.clock()
	ec := tokenopt.Assemble(sc, task, plan, i, prev)

	toolCallback := func(name string) {
		emit(model.ProgressEvent{Kind: model.ProgressToolCall, Iteration: i + 1, ToolName: name})
	}
	out, toolLevel, err := o.Executor.Run(ctx, ec.System, ec.Messages, sc.Tools, toolCallback)

	if err != nil {
		if model.IsContextOverflow(err) {
			c := model.IterationCycle{
				ID:             id.New(),
				TaskID:         task.ID,
				IterationIndex: i,
				Phase:          phaseExecute,
				Output: &model.ExecutionOutput{
					Content:         "context window exceeded; pruning will apply on the next iteration",
					ContextOverflow: true,
				},
				Decision:  model.DecisionContinue,
				Duration:  o.clock().Sub(iterStart),
				Category:  task.Category,
				CreatedAt: o.clock(),
			}
			o.persistCycle(ctx, c)
			return &c, toolLevel
		}
		// ProviderTransport: surfaced to the current phase. With nothing
		// recorded yet this iteration simply doesn't happen.
		return nil, toolLevel
	}

	eval, skipped := o.evaluate(ctx, task, prev, out, skipEvalConfidence)

	execEv := o.recordUsage(ctx, task.ID, phaseExecute, out.Usage)
	budget.Deduct(phaseExecute, out.Usage.Total(), execEv.CostUSD)

	totalUsage := out.Usage
	if !skipped {
		evalEv := o.recordUsage(ctx, task.ID, phaseEvaluate, eval.Usage)
		budget.Deduct(phaseEvaluate, eval.Usage.Total(), evalEv.CostUSD)
		totalUsage = totalUsage.Add(eval.Usage)
	}

	// SkipEval governs whether a new judge/checker call ran (and thus
	// whether new usage was booked above), not the persisted decision:
	// the cycle's decision still comes from the score-based rule in
	// step 8, scored against whatever evaluation is in play.
	decision := model.DecisionContinue
	switch {
	case eval.Score >= cfg.QualityThreshold:
		decision = model.DecisionAccept
	case i+1 == cfg.MaxIterations:
		decision = model.DecisionAcceptBest
	}

	evaluated := append(append([]model.IterationCycle(nil), priorCycles...), model.IterationCycle{Evaluation: &eval})
	if abort := checker.Check(budget, o.clock().Sub(iterStart), evaluated); abort != "" {
		decision = abort
	}

	c := model.IterationCycle{
		ID:             id.New(),
		TaskID:         task.ID,
		IterationIndex: i,
		Phase:          phaseExecute,
		Output:         &out,
		Evaluation:     &eval,
		Decision:       decision,
		Usage:          totalUsage,
		Duration:       o.clock().Sub(iterStart),
		SkillsUsed:     skillNames,
		Category:       task.Category,
		CreatedAt:      o.clock(),
	}
	o.persistCycle(ctx, c)
	return &c, toolLevel
}

// evaluate returns the iteration's Evaluation and whether it was borrowed
// outright from the eval cache (no new judge/checker call made, so no new
// usage to account for).
func (o *Orchestrator) evaluate(ctx context.Context, task model.TaskInput, prev *model.IterationCycle, out model.ExecutionOutput, skipEvalConfidence float64) (model.Evaluation, bool) {
	if evaluator.ShouldSkipEval(out.Content, prev, skipEvalConfidence) {
		return *prev.Evaluation, true
	}

	if prev != nil && prev.Evaluation != nil {
		var prevContent string
		if prev.Output != nil {
			prevContent = prev.Output.Content
		}
		return o.Evaluator.Incremental(ctx, task.Category, task.Description, prevContent, out.Content, o.WorkDir, *prev.Evaluation), false
	}
	return o.Evaluator.Full(ctx, task.Category, task.Description, out.Content, o.WorkDir), false
}

func (o *Orchestrator) recordUsage(ctx context.Context, taskID int64, phase string, usage model.TokenUsage) model.UsageEvent {
	if o.Cost == nil {
		return model.UsageEvent{TaskID: taskID, Phase: phase, Usage: usage}
	}
	ev := o.Cost.Record(taskID, o.Provider.ID(), phase, usage)
	if o.Usage != nil {
		_ = o.Usage.Create(ctx, ev) // StoreFailure: non-fatal for the current iteration
	}
	return ev
}

func (o *Orchestrator) persistCycle(ctx context.Context, c model.IterationCycle) {
	if o.Cycles == nil {
		return
	}
	_ = o.Cycles.Create(ctx, c) // StoreFailure: non-fatal for the current iteration
}

// finalize builds the terminal TaskResult from the best-scoring cycle
// (ties broken by insertion order — bestIdx only updates on a strict
// improvement), persists task completion, mines learnings, decays the
// category's memory, and folds the outcome into skill effectiveness.
func (o *Orchestrator) finalize(ctx context.Context, task model.TaskInput, cycles []model.IterationCycle, bestIdx int, budget *model.TokenBudget, skillNames []string) model.TaskResult {
	best := cycles[bestIdx]

	var output string
	if best.Output != nil {
		output = best.Output.Content
	}

	result := model.TaskResult{
		TaskID:      task.ID,
		Output:      output,
		Iterations:  len(cycles),
		TotalTokens: budget.Spent,
		CostUSD:     budget.CostUSD,
		SkillsUsed:  skillNames,
		FinalScore:  best.Score(),
		Decision:    best.Decision,
	}

	if o.Tasks != nil {
		if err := o.Tasks.Complete(ctx, task.ID, result, o.clock()); err != nil {
			_ = o.Tasks.Complete(ctx, task.ID, result, o.clock()) // StoreFailure: the completion write is retried once
		}
	}

	if o.Extractor != nil && o.Learnings != nil {
		result.LearningsSaved = o.extractAndSaveLearnings(ctx, task.Category, cycles)
	}

	if o.Decayer != nil {
		_ = o.Decayer.Decay(ctx, task.Category, o.clock())
	}

	if o.SkillWriter != nil {
		for _, name := range skillNames {
			eff := model.SkillEffectiveness{SkillName: name, TaskCategory: task.Category}
			eff.Update(best.Score(), o.clock())
			_ = o.SkillWriter.UpsertEffectiveness(ctx, eff)
		}
	}

	return result
}

func (o *Orchestrator) extractAndSaveLearnings(ctx context.Context, category string, cycles []model.IterationCycle) int {
	mined, err := o.Extractor.Extract(ctx, category, cycles)
	if err != nil {
		return 0
	}

	existing, err := o.Learnings.ListLearnings(ctx, category)
	if err != nil {
		existing = nil
	}

	saved := 0
	for _, l := range mined {
		found, err := memory.Dedup(ctx, o.Learnings, existing, l)
		if err != nil || found {
			continue
		}
		if _, err := o.Learnings.SaveLearning(ctx, l); err == nil {
			saved++
			existing = append(existing, l)
		}
	}
	return saved
}
