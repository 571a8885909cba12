package daemon_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/daemon"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("PatternDue", func() {
	DescribeTable("frequency matching",
		func(freq string, at time.Time, expected bool) {
			p := model.ScheduledPattern{Frequency: freq}
			Expect(daemon.PatternDue(p, at)).To(Equal(expected))
		},
		Entry("hourly fires on the hour", "hourly", time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC), true),
		Entry("hourly does not fire mid-hour", "hourly", time.Date(2026, 7, 29, 14, 30, 0, 0, time.UTC), false),
		Entry("daily HH:MM fires at the exact minute", "daily 09:05", time.Date(2026, 7, 29, 9, 5, 0, 0, time.UTC), true),
		Entry("daily HH:MM does not fire a minute early", "daily 09:05", time.Date(2026, 7, 29, 9, 4, 0, 0, time.UTC), false),
		Entry("every Nm fires on a multiple of N", "every 15m", time.Date(2026, 7, 29, 9, 30, 0, 0, time.UTC), true),
		Entry("every Nm does not fire off a multiple of N", "every 15m", time.Date(2026, 7, 29, 9, 31, 0, 0, time.UTC), false),
		Entry("unrecognized frequency never fires", "weekly", time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC), false),
	)
})

type fakePatternStore struct {
	patterns []model.ScheduledPattern
}

func (f *fakePatternStore) ListApproved(_ context.Context) ([]model.ScheduledPattern, error) {
	return f.patterns, nil
}

var _ = Describe("Scheduler.Tick", func() {
	It("submits a fresh task built from a due pattern's template", func() {
		patterns := &fakePatternStore{patterns: []model.ScheduledPattern{
			{ID: 1, Frequency: "hourly", TaskTemplate: model.TaskInput{Description: "nightly sweep"}},
			{ID: 2, Frequency: "daily 23:00", TaskTemplate: model.TaskInput{Description: "not due"}},
		}}

		var submitted []model.TaskInput
		sched := daemon.NewScheduler(patterns, func(t model.TaskInput) bool {
			submitted = append(submitted, t)
			return true
		})
		sched.Now = func() time.Time { return time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC) }

		sched.Tick(context.Background())

		Expect(submitted).To(HaveLen(1))
		Expect(submitted[0].Description).To(Equal("nightly sweep"))
		Expect(submitted[0].ID).NotTo(BeZero())
	})

	It("submits nothing when no pattern is due", func() {
		patterns := &fakePatternStore{patterns: []model.ScheduledPattern{
			{ID: 1, Frequency: "daily 23:00", TaskTemplate: model.TaskInput{Description: "not due"}},
		}}

		var submitted []model.TaskInput
		sched := daemon.NewScheduler(patterns, func(t model.TaskInput) bool {
			submitted = append(submitted, t)
			return true
		})
		sched.Now = func() time.Time { return time.Date(2026, 7, 29, 10, 1, 0, 0, time.UTC) }

		sched.Tick(context.Background())

		Expect(submitted).To(BeEmpty())
	})
})
