package model

import "time"

// UsageEvent is one priced model call, persisted for cost reporting and for
// mining UsagePattern aggregates.
type UsageEvent struct {
	ID           int64     `json:"id"`
	TaskID       int64     `json:"task_id"`
	Model        string    `json:"model"`
	Phase        string    `json:"phase"`
	Usage        TokenUsage `json:"usage"`
	CostUSD      float64   `json:"cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsagePattern is a rolled-up (model, phase) cost/volume aggregate used by
// the Cost Tracker's reporting views.
type UsagePattern struct {
	Model        string  `json:"model"`
	Phase        string  `json:"phase"`
	CallCount    int64   `json:"call_count"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// CostPer1kOutput returns total cost divided by output tokens per thousand,
// or 0 when no output tokens were recorded.
func (p UsagePattern) CostPer1kOutput(outputTokens int64) float64 {
	if outputTokens <= 0 {
		return 0
	}
	return p.TotalCostUSD / (float64(outputTokens) / 1000.0)
}
