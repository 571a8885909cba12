package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/model"
)

type taskStore struct {
	queries *sqlc.Queries
}

func (s *taskStore) Create(ctx context.Context, task model.TaskInput) error {
	contextJSON, err := json.Marshal(task.Context)
	if err != nil {
		return fmt.Errorf("marshaling task context: %w", err)
	}

	return s.queries.CreateTask(ctx, sqlc.CreateTaskParams{
		ID:          task.ID,
		SessionID:   task.SessionID,
		Description: task.Description,
		Category:    task.Category,
		Context:     contextJSON,
	})
}

func (s *taskStore) Get(ctx context.Context, id int64) (model.TaskInput, error) {
	row, err := s.queries.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TaskInput{}, ErrNotFound
		}
		return model.TaskInput{}, err
	}
	return toTaskInput(row)
}

func (s *taskStore) List(ctx context.Context, limit int32) ([]model.TaskInput, error) {
	rows, err := s.queries.ListTasks(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]model.TaskInput, 0, len(rows))
	for _, row := range rows {
		t, err := toTaskInput(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *taskStore) Complete(ctx context.Context, taskID int64, result model.TaskResult, completedAt time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling task result: %w", err)
	}
	return s.queries.CompleteTask(ctx, taskID, resultJSON, completedAt)
}

func toTaskInput(row sqlc.Task) (model.TaskInput, error) {
	t := model.TaskInput{
		ID:          row.ID,
		SessionID:   row.SessionID,
		Description: row.Description,
		Category:    row.Category,
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Context) > 0 {
		if err := json.Unmarshal(row.Context, &t.Context); err != nil {
			return model.TaskInput{}, fmt.Errorf("unmarshaling task context: %w", err)
		}
	}
	return t, nil
}
