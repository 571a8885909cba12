package daemon_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaycore.dev/agentcore/internal/daemon"
	"relaycore.dev/agentcore/internal/model"
)

var _ = Describe("TaskQueue", func() {
	It("rejects a resubmission of a task id that is already queued", func() {
		q := daemon.NewTaskQueue()
		task := model.TaskInput{ID: 1}

		Expect(q.Submit(task)).To(BeTrue())
		Expect(q.Submit(task)).To(BeFalse())
	})

	It("rejects a resubmission of a task id that is already processing", func() {
		q := daemon.NewTaskQueue()
		task := model.TaskInput{ID: 1}
		Expect(q.Submit(task)).To(BeTrue())

		claimed := q.Drain()
		Expect(claimed).To(HaveLen(1))

		Expect(q.Submit(task)).To(BeFalse())
	})

	It("allows resubmission once a claimed task is released", func() {
		q := daemon.NewTaskQueue()
		task := model.TaskInput{ID: 1}
		Expect(q.Submit(task)).To(BeTrue())
		q.Drain()

		q.Release(task.ID)

		Expect(q.Submit(task)).To(BeTrue())
	})

	It("only reports a task active while queued or processing", func() {
		q := daemon.NewTaskQueue()
		task := model.TaskInput{ID: 1}

		Expect(q.IsActive(task.ID)).To(BeFalse())
		q.Submit(task)
		Expect(q.IsActive(task.ID)).To(BeTrue())
		q.Drain()
		Expect(q.IsActive(task.ID)).To(BeTrue())
		q.Release(task.ID)
		Expect(q.IsActive(task.ID)).To(BeFalse())
	})

	It("cancels only a currently active task id", func() {
		q := daemon.NewTaskQueue()
		task := model.TaskInput{ID: 1}

		Expect(q.Cancel(task.ID)).To(BeFalse())

		q.Submit(task)
		Expect(q.Cancel(task.ID)).To(BeTrue())
		Expect(q.Cancelled(task.ID)).To(BeTrue())
	})

	It("clears the cancel flag on release", func() {
		q := daemon.NewTaskQueue()
		task := model.TaskInput{ID: 1}
		q.Submit(task)
		q.Cancel(task.ID)
		q.Drain()
		q.Release(task.ID)

		Expect(q.Cancelled(task.ID)).To(BeFalse())
	})
})
