package evaluator_test

import "context"

// mockCommandRunner is the teacher's hand-rolled function-field mock
// pattern, adapted from internal/service/mocks_test.go.
type mockCommandRunner struct {
	runFn func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

func (m *mockCommandRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if m.runFn != nil {
		return m.runFn(ctx, dir, name, args...)
	}
	return nil, nil
}
