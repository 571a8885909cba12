package cost

import (
	"sort"
	"sync"

	"relaycore.dev/agentcore/internal/model"
)

// Tracker accumulates usage events in memory and answers the Cost
// Tracker's reporting queries. Persistence of individual UsageEvents is
// the store's concern; Tracker is the process-local aggregate the daemon's
// /api/v1/cost endpoint reads.
type Tracker struct {
	mu     sync.Mutex
	events []model.UsageEvent
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record prices one call's usage and appends the resulting UsageEvent.
func (t *Tracker) Record(taskID int64, modelName, phase string, usage model.TokenUsage) model.UsageEvent {
	costUSD := Compute(modelName, usage.Input, usage.Output, usage.CacheRead, usage.CacheWrite)
	ev := model.UsageEvent{
		TaskID:  taskID,
		Model:   modelName,
		Phase:   phase,
		Usage:   usage,
		CostUSD: costUSD,
	}

	t.mu.Lock()
	t.events = append(t.events, ev)
	t.mu.Unlock()

	return ev
}

// Report is the composite view the daemon's /api/v1/cost endpoint returns.
type Report struct {
	TotalCostUSD   float64
	TotalTokens    int64
	TotalCalls     int64
	CostPer1kOutput float64
	ByModel        []model.UsagePattern
	ByPhase        []model.UsagePattern
}

// Report computes the full aggregate view over all recorded events.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	events := append([]model.UsageEvent(nil), t.events...)
	t.mu.Unlock()

	var r Report
	byModel := make(map[string]*model.UsagePattern)
	byPhase := make(map[string]*model.UsagePattern)
	var totalOutput int64

	for _, ev := range events {
		r.TotalCostUSD += ev.CostUSD
		r.TotalTokens += ev.Usage.Total()
		r.TotalCalls++
		totalOutput += ev.Usage.Output

		accumulate(byModel, ev.Model, ev)
		accumulate(byPhase, ev.Phase, ev)
	}

	r.ByModel = flatten(byModel)
	r.ByPhase = flatten(byPhase)
	r.CostPer1kOutput = costPer1kOutput(r.TotalCostUSD, totalOutput)

	return r
}

// ForTask returns total cost and token usage for one task.
func (t *Tracker) ForTask(taskID int64) (costUSD float64, tokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ev := range t.events {
		if ev.TaskID == taskID {
			costUSD += ev.CostUSD
			tokens += ev.Usage.Total()
		}
	}
	return costUSD, tokens
}

// AvgCostPerTask divides total cost by the count of distinct task ids seen.
func (t *Tracker) AvgCostPerTask() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	tasks := make(map[int64]bool)
	var total float64
	for _, ev := range t.events {
		tasks[ev.TaskID] = true
		total += ev.CostUSD
	}
	if len(tasks) == 0 {
		return 0
	}
	return total / float64(len(tasks))
}

func accumulate(m map[string]*model.UsagePattern, key string, ev model.UsageEvent) {
	p, ok := m[key]
	if !ok {
		p = &model.UsagePattern{Model: ev.Model, Phase: ev.Phase}
		m[key] = p
	}
	p.CallCount++
	p.TotalTokens += ev.Usage.Total()
	p.TotalCostUSD += ev.CostUSD
}

func flatten(m map[string]*model.UsagePattern) []model.UsagePattern {
	out := make([]model.UsagePattern, 0, len(m))
	for _, p := range m {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalCostUSD > out[j].TotalCostUSD })
	return out
}

func costPer1kOutput(totalCostUSD float64, totalOutput int64) float64 {
	if totalOutput <= 0 {
		return 0
	}
	return totalCostUSD / (float64(totalOutput) / 1000.0)
}
