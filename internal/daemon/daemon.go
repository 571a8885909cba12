// Package daemon is the thin long-running supervisor that feeds the core
// (spec §4.10): an HTTP API, a minute-tick cron scheduler, and an API task
// queue drain loop, all feeding the same orchestrator.Orchestrator through
// a single TaskQueue claim/idle state machine so at most one task runs at
// a time (spec §5). The Watcher type handles integration mentions by
// calling the Run func it is given; Daemon.Run does not start it.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"relaycore.dev/agentcore/core/config"
	"relaycore.dev/agentcore/internal/cost"
	"relaycore.dev/agentcore/internal/memory"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/orchestrator"
	"relaycore.dev/agentcore/internal/safety"
	"relaycore.dev/agentcore/internal/store"
)

// Daemon wires the Orchestrator to its three external feeders.
type Daemon struct {
	Cfg          config.Config
	Orchestrator *orchestrator.Orchestrator
	Tasks        store.TaskStore
	Sessions     store.SessionStore
	Patterns     store.PatternStore
	Cost         *cost.Tracker
	Recaller     *memory.Recaller
	Selector     *memory.SkillSelector
	Tools        []model.ToolSpec

	Queue       *TaskQueue
	Broadcaster *Broadcaster
	Watcher     *Watcher

	Version string

	startedAt time.Time

	activeMu     sync.Mutex
	activeTaskID int64
	activeCancel context.CancelFunc
	hasActive    bool

	dailyMu    sync.Mutex
	dailyDate  string
	dailyCount int
}

// New returns a Daemon ready to Run. Queue and Broadcaster default to a
// fresh in-process instance if not set by the caller.
func New(cfg config.Config, orch *orchestrator.Orchestrator) *Daemon {
	return &Daemon{
		Cfg:          cfg,
		Orchestrator: orch,
		Queue:        NewTaskQueue(),
		Broadcaster:  NewBroadcaster(nil),
		startedAt:    time.Now(),
		Version:      "dev",
	}
}

// Run starts the cron scheduler and the API queue drain loop, blocking
// until ctx is cancelled. Both dispatch paths submit into the same
// TaskQueue, so RunTask never executes two tasks concurrently.
func (d *Daemon) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if d.Patterns != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched := NewScheduler(d.Patterns, d.Submit)
			sched.Run(ctx, d.Cfg.CronTickInterval)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.drainLoop(ctx)
	}()

	wg.Wait()
}

// drainLoop claims pending tasks every QueueDrainInterval and runs them one
// at a time, matching spec §5's single-Orchestrator-at-a-time model.
func (d *Daemon) drainLoop(ctx context.Context) {
	ticker := time.NewTicker(d.Cfg.QueueDrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, task := range d.Queue.Drain() {
				d.runClaimed(ctx, task)
			}
		}
	}
}

// Submit enqueues task for the next drain tick. Returns false if task.ID is
// already active.
func (d *Daemon) Submit(task model.TaskInput) bool {
	return d.Queue.Submit(task)
}

// runClaimed assembles a SessionContext and runs an already-claimed task,
// releasing it back to idle when done regardless of outcome.
func (d *Daemon) runClaimed(ctx context.Context, task model.TaskInput) {
	defer d.Queue.Release(task.ID)

	sc, err := d.buildSessionContext(ctx, task)
	if err != nil {
		slog.ErrorContext(ctx, "assembling session context failed", "task_id", task.ID, "error", err)
		return
	}

	if _, err := d.RunTask(ctx, sc, task); err != nil {
		slog.ErrorContext(ctx, "task run failed", "task_id", task.ID, "error", err)
	}
}

// buildSessionContext loads the task's session soul (if any) and runs
// memory recall plus skill selection, per spec §4.5/§4.6.
func (d *Daemon) buildSessionContext(ctx context.Context, task model.TaskInput) (model.SessionContext, error) {
	var soul string
	if task.SessionID != nil && d.Sessions != nil {
		sess, err := d.Sessions.Get(ctx, *task.SessionID)
		if err != nil && err != store.ErrNotFound {
			return model.SessionContext{}, fmt.Errorf("loading session: %w", err)
		}
		soul = sess.Soul
	}

	var recall model.RecallResult
	if d.Recaller != nil {
		r, err := d.Recaller.Recall(ctx, task.Category, task.Description, 0)
		if err != nil {
			slog.WarnContext(ctx, "recall failed, proceeding without it", "error", err)
		} else {
			recall = r
		}
	}

	var ranked []model.RankedSkill
	if d.Selector != nil {
		suggested := make(map[string]bool, len(recall.TopSkills))
		for _, s := range recall.TopSkills {
			suggested[s.Skill.Name] = true
		}
		rs, err := d.Selector.Select(ctx, task.Description, task.Category, suggested, nil)
		if err != nil {
			slog.WarnContext(ctx, "skill selection failed, proceeding without it", "error", err)
		} else {
			ranked = rs
		}
	}

	return model.SessionContext{
		Soul:               soul,
		RankedSkills:       ranked,
		Recall:             recall,
		Tools:              d.Tools,
		ModelContextWindow: d.Cfg.ModelProvider.ContextWindow,
	}, nil
}

// RunTask drives one task through the Orchestrator, tracking it as the
// daemon's active task for cancellation and status reporting, and bumping
// the day's completed-task counter.
func (d *Daemon) RunTask(ctx context.Context, sc model.SessionContext, task model.TaskInput) (model.TaskResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	d.setActive(task.ID, cancel)
	defer d.clearActive()

	go d.watchCancel(runCtx, cancel, task.ID)

	orchCfg := orchestrator.Config{
		MaxIterations:      d.Cfg.Orchestrator.MaxIterations,
		QualityThreshold:   d.Cfg.Orchestrator.QualityThreshold,
		SkipEvalConfidence: d.Cfg.Orchestrator.SkipEvalConfidence,
		Safety: safety.Config{
			MaxTokens:           d.Cfg.Orchestrator.MaxTokens,
			MaxCostUSD:          d.Cfg.Orchestrator.MaxCostUSD,
			MaxDurationSecs:     int64(d.Cfg.Orchestrator.MaxDurationSeconds),
			RegressionThreshold: d.Cfg.Orchestrator.RegressionThreshold,
		},
	}

	result, err := d.Orchestrator.Run(runCtx, sc, task, orchCfg, func(ev model.ProgressEvent) {
		d.Broadcaster.Publish(ctx, ev)
	})
	if err == nil {
		d.bumpDailyCount()
	}
	return result, err
}

// watchCancel polls the TaskQueue's cancel set and calls cancel once the
// daemon observes a cancel request for taskID. Polling (rather than a
// per-task channel) keeps Cancel's critical section in TaskQueue trivial;
// the Orchestrator itself only acts on the cancellation at its next
// iteration boundary.
func (d *Daemon) watchCancel(ctx context.Context, cancel context.CancelFunc, taskID int64) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.Queue.Cancelled(taskID) {
				cancel()
				return
			}
		}
	}
}

func (d *Daemon) setActive(taskID int64, cancel context.CancelFunc) {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()
	d.activeTaskID = taskID
	d.activeCancel = cancel
	d.hasActive = true
}

func (d *Daemon) clearActive() {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()
	d.hasActive = false
	d.activeCancel = nil
}

// ActiveTask returns the currently running task id, if any.
func (d *Daemon) ActiveTask() (taskID int64, ok bool) {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()
	return d.activeTaskID, d.hasActive
}

// Cancel requests cancellation of taskID. Returns true if taskID was
// active (queued or processing) at the time of the call.
func (d *Daemon) Cancel(taskID int64) bool {
	return d.Queue.Cancel(taskID)
}

func (d *Daemon) bumpDailyCount() {
	d.dailyMu.Lock()
	defer d.dailyMu.Unlock()
	today := time.Now().UTC().Format("2006-01-02")
	if d.dailyDate != today {
		d.dailyDate = today
		d.dailyCount = 0
	}
	d.dailyCount++
}

// DailyCount returns the number of tasks completed since UTC midnight.
func (d *Daemon) DailyCount() int {
	d.dailyMu.Lock()
	defer d.dailyMu.Unlock()
	today := time.Now().UTC().Format("2006-01-02")
	if d.dailyDate != today {
		return 0
	}
	return d.dailyCount
}

// Uptime returns how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startedAt)
}
