package daemon

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"relaycore.dev/agentcore/common/id"
	"relaycore.dev/agentcore/internal/model"
	"relaycore.dev/agentcore/internal/store"
)

// PatternDue reports whether pattern should fire at now (evaluated in UTC),
// per spec §4.10's three supported frequency shapes:
//   - "hourly"        — fires once per hour, on the hour
//   - "daily HH:MM"   — fires once per day at the given UTC clock time
//   - "every Nm"       — fires when the UTC minute of the hour is a multiple of N
func PatternDue(pattern model.ScheduledPattern, now time.Time) bool {
	now = now.UTC()
	freq := strings.TrimSpace(pattern.Frequency)

	switch {
	case freq == "hourly":
		return now.Minute() == 0

	case strings.HasPrefix(freq, "daily "):
		hhmm := strings.TrimSpace(strings.TrimPrefix(freq, "daily "))
		parts := strings.SplitN(hhmm, ":", 2)
		if len(parts) != 2 {
			return false
		}
		hh, errH := strconv.Atoi(parts[0])
		mm, errM := strconv.Atoi(parts[1])
		if errH != nil || errM != nil {
			return false
		}
		return now.Hour() == hh && now.Minute() == mm

	case strings.HasPrefix(freq, "every ") && strings.HasSuffix(freq, "m"):
		nStr := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(freq, "every "), "m"))
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return false
		}
		return now.Minute()%n == 0

	default:
		return false
	}
}

// Scheduler is the daemon's minute-tick cron: every tick it lists approved
// patterns and dispatches a fresh TaskInput, built from each due pattern's
// TaskTemplate, to Submit.
type Scheduler struct {
	Patterns store.PatternStore
	Submit   func(model.TaskInput) bool

	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// NewScheduler returns a Scheduler with its clock defaulted to time.Now.
func NewScheduler(patterns store.PatternStore, submit func(model.TaskInput) bool) *Scheduler {
	return &Scheduler{Patterns: patterns, Submit: submit, Now: time.Now}
}

// Run blocks, ticking every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass immediately: list approved patterns, submit
// a fresh task for each one due at the current (or overridden) clock time.
func (s *Scheduler) Tick(ctx context.Context) {
	clock := time.Now
	if s.Now != nil {
		clock = s.Now
	}
	now := clock()

	patterns, err := s.Patterns.ListApproved(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "listing approved patterns", "error", err)
		return
	}

	for _, p := range patterns {
		if !PatternDue(p, now) {
			continue
		}
		task := p.TaskTemplate
		task.ID = id.New()
		task.CreatedAt = now
		if !s.Submit(task) {
			slog.InfoContext(ctx, "scheduled task skipped, already active", "pattern_id", p.ID)
		}
	}
}
