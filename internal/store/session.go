package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"relaycore.dev/agentcore/core/db/sqlc"
	"relaycore.dev/agentcore/internal/model"
)

type sessionStore struct {
	queries *sqlc.Queries
}

func (s *sessionStore) Create(ctx context.Context, id int64, soul string) error {
	return s.queries.CreateSession(ctx, id, soul)
}

func (s *sessionStore) Get(ctx context.Context, id int64) (model.Session, error) {
	row, err := s.queries.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	return model.Session{ID: row.ID, Soul: row.Soul, CreatedAt: row.CreatedAt}, nil
}
