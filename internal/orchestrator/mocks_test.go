package orchestrator_test

import (
	"context"
	"fmt"
	"time"

	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/model"
)

// stubProvider replays a scripted queue of ChatResponses (or errors), one
// per call, holding the last entry for any calls beyond the queue's length.
// Separate instances back the Executor's model calls and the Judge's, in
// the teacher's style of small hand-rolled test doubles over a narrow
// interface (see internal/evaluator/mocks_test.go).
type stubProvider struct {
	responses []llmprovider.ChatResponse
	errs      []error
	calls     int
}

func (s *stubProvider) Chat(_ context.Context, _ llmprovider.ChatRequest) (*llmprovider.ChatResponse, error) {
	i := s.calls
	s.calls++

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if len(s.responses) == 0 {
		return &llmprovider.ChatResponse{StopReason: llmprovider.StopReasonEndTurn}, nil
	}
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	resp := s.responses[i]
	return &resp, nil
}

func (s *stubProvider) ChatStream(_ context.Context, _ llmprovider.ChatRequest, ch chan<- llmprovider.ChatChunk) error {
	close(ch)
	return nil
}

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float32, error) { return nil, nil }

func (s *stubProvider) Models(_ context.Context) ([]llmprovider.ModelInfo, error) { return nil, nil }

func (s *stubProvider) ID() string { return "stub:model" }

// fakeTaskStore is an in-memory store.TaskStore fake.
type fakeTaskStore struct {
	tasks     map[int64]model.TaskInput
	results   map[int64]model.TaskResult
	createErr error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[int64]model.TaskInput{}, results: map[int64]model.TaskResult{}}
}

func (f *fakeTaskStore) Create(_ context.Context, task model.TaskInput) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) Get(_ context.Context, id int64) (model.TaskInput, error) {
	t, ok := f.tasks[id]
	if !ok {
		return model.TaskInput{}, model.ErrNotFound
	}
	return t, nil
}

func (f *fakeTaskStore) List(_ context.Context, limit int32) ([]model.TaskInput, error) {
	out := make([]model.TaskInput, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	if limit > 0 && int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTaskStore) Complete(_ context.Context, taskID int64, result model.TaskResult, _ time.Time) error {
	f.results[taskID] = result
	return nil
}

// fakeCycleStore is an in-memory store.CycleStore fake.
type fakeCycleStore struct {
	cycles []model.IterationCycle
}

func newFakeCycleStore() *fakeCycleStore { return &fakeCycleStore{} }

func (f *fakeCycleStore) Create(_ context.Context, cycle model.IterationCycle) error {
	f.cycles = append(f.cycles, cycle)
	return nil
}

func (f *fakeCycleStore) ListByTask(_ context.Context, taskID int64) ([]model.IterationCycle, error) {
	var out []model.IterationCycle
	for _, c := range f.cycles {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeUsageStore is an in-memory store.UsageStore fake.
type fakeUsageStore struct {
	events []model.UsageEvent
}

func newFakeUsageStore() *fakeUsageStore { return &fakeUsageStore{} }

func (f *fakeUsageStore) Create(_ context.Context, event model.UsageEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeUsageStore) ListByTask(_ context.Context, taskID int64) ([]model.UsageEvent, error) {
	var out []model.UsageEvent
	for _, e := range f.events {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeSkillWriter is an in-memory store.SkillEffectivenessWriter fake.
type fakeSkillWriter struct {
	upserts []model.SkillEffectiveness
}

func newFakeSkillWriter() *fakeSkillWriter { return &fakeSkillWriter{} }

func (f *fakeSkillWriter) UpsertEffectiveness(_ context.Context, eff model.SkillEffectiveness) error {
	f.upserts = append(f.upserts, eff)
	return nil
}

// fakeLearningStore is an in-memory memory.LearningStore fake, mirroring
// internal/memory's own test double over the same narrow interface.
type fakeLearningStore struct {
	learnings []model.Learning
	nextID    int64
}

func newFakeLearningStore() *fakeLearningStore { return &fakeLearningStore{} }

func (f *fakeLearningStore) ListLearnings(_ context.Context, category string) ([]model.Learning, error) {
	var out []model.Learning
	for _, l := range f.learnings {
		if category != "" && l.Category != "" && l.Category != category {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLearningStore) SaveLearning(_ context.Context, l model.Learning) (model.Learning, error) {
	f.nextID++
	l.ID = f.nextID
	f.learnings = append(f.learnings, l)
	return l, nil
}

func (f *fakeLearningStore) ReinforceLearning(_ context.Context, id int64) error {
	for i, l := range f.learnings {
		if l.ID == id {
			f.learnings[i].ReinforcedCount++
		}
	}
	return nil
}

func (f *fakeLearningStore) DeleteLearning(_ context.Context, id int64) error {
	out := f.learnings[:0]
	for _, l := range f.learnings {
		if l.ID != id {
			out = append(out, l)
		}
	}
	f.learnings = out
	return nil
}

// nullDispatcher errors on any tool call; every scenario below scripts
// providers that end their turn without requesting one.
type nullDispatcher struct{}

func (nullDispatcher) Dispatch(_ context.Context, call model.ToolCall) (string, []string, error) {
	return "", nil, fmt.Errorf("unexpected tool call %q", call.Name)
}
