package model

import "time"

// PatternStatus is the approval state of a ScheduledPattern.
type PatternStatus string

const (
	PatternDetected PatternStatus = "detected"
	PatternApproved PatternStatus = "approved"
	PatternDismissed PatternStatus = "dismissed"
)

// ScheduledPattern is an approved recurring task the daemon's minute-tick
// cron scheduler dispatches when its Frequency ("hourly", "daily HH:MM",
// "every Nm") matches the current UTC minute. Corresponds to the data
// model's UsagePattern entity; renamed to avoid colliding with
// model.UsagePattern (the Cost Tracker's per-model/phase aggregate).
type ScheduledPattern struct {
	ID           int64          `json:"id"`
	Description  string         `json:"description"`
	Frequency    string         `json:"frequency"`
	TaskTemplate TaskInput      `json:"task_template"`
	Status       PatternStatus  `json:"status"`
	Confidence   float64        `json:"confidence"`
	SampleCount  int            `json:"sample_count"`
	FirstSeen    time.Time      `json:"first_seen"`
	LastSeen     time.Time      `json:"last_seen"`
}
