package daemon

import (
	"sync"

	"relaycore.dev/agentcore/internal/model"
)

// taskState tracks one submitted task id through the daemon's claim/idle
// state machine. This prevents the two dispatch paths (HTTP queue drain
// and cron tick) from double-running the same task id concurrently,
// mirroring the teacher's issues.ClaimQueued/SetIdle/QueueIfIdle pattern
// adapted from "issue" rows to in-memory task ids.
type taskState int

const (
	stateIdle taskState = iota
	stateQueued
	stateProcessing
)

// TaskQueue holds tasks submitted through the HTTP API until the drain
// loop claims them, and the set of task ids an API caller has asked to
// cancel. Both are guarded by a single short critical section per spec
// §5's "API task queue and cancel set: guarded by a short critical
// section."
type TaskQueue struct {
	mu      sync.Mutex
	pending []model.TaskInput
	states  map[int64]taskState
	cancels map[int64]struct{}
}

// NewTaskQueue returns an empty TaskQueue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		states:  make(map[int64]taskState),
		cancels: make(map[int64]struct{}),
	}
}

// Submit enqueues task for later draining. Returns false (QueueIfIdle's
// "already queued or processing, skip" case) if task.ID is already
// tracked as queued or processing.
func (q *TaskQueue) Submit(task model.TaskInput) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if st := q.states[task.ID]; st == stateQueued || st == stateProcessing {
		return false
	}
	q.states[task.ID] = stateQueued
	q.pending = append(q.pending, task)
	return true
}

// Drain claims and returns every pending task, transitioning each from
// queued to processing. Callers must call Release once a claimed task's
// run has finished (success or failure), matching the teacher's
// defer-SetIdle discipline.
func (q *TaskQueue) Drain() []model.TaskInput {
	q.mu.Lock()
	defer q.mu.Unlock()

	claimed := q.pending
	q.pending = nil
	for _, t := range claimed {
		q.states[t.ID] = stateProcessing
	}
	return claimed
}

// Release transitions task back to idle and clears any cancel flag set
// against it, so a later resubmission starts clean.
func (q *TaskQueue) Release(taskID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.states, taskID)
	delete(q.cancels, taskID)
}

// IsActive reports whether taskID is currently queued or processing.
func (q *TaskQueue) IsActive(taskID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.states[taskID]
	return ok && st != stateIdle
}

// Cancel marks taskID for cancellation. Returns true if the task was
// active (queued or processing) at the time of the call, matching the
// HTTP handler's "200 on active; 404 otherwise" contract.
func (q *TaskQueue) Cancel(taskID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st := q.states[taskID]; st == stateIdle {
		return false
	}
	q.cancels[taskID] = struct{}{}
	return true
}

// Cancelled reports whether taskID has a pending cancel request. The
// Orchestrator only observes this at iteration boundaries (advisory
// cancellation, spec §5).
func (q *TaskQueue) Cancelled(taskID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.cancels[taskID]
	return ok
}
