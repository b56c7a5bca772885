package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pnl-tracker/internal/common"
)

const stateTable = "app_state"

// StateStore is a small key/value table holding the local copy of app state.
type StateStore interface {
	// Get returns common.ErrNotFound for a missing key.
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

type stateStore struct {
	store  *Store
	logger *slog.Logger
}

func NewStateStore(store *Store, logger *slog.Logger) StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &stateStore{store: store, logger: logger}
}

func (s *stateStore) Get(ctx context.Context, key string) (string, error) {
	q, args := entsql.Dialect(s.store.Dialect()).
		Select("value").
		From(entsql.Table(stateTable)).
		Where(entsql.EQ("key", key)).
		Query()

	var rows entsql.Rows
	if err := s.store.drv.Query(ctx, q, args, &rows); err != nil {
		s.logger.Error("failed to read state", "key", key, "error", err)
		return "", fmt.Errorf("read state %s: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", fmt.Errorf("read state %s: %w", key, err)
		}
		return "", fmt.Errorf("state %s: %w", key, common.ErrNotFound)
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return "", fmt.Errorf("scan state %s: %w", key, err)
	}
	return value, nil
}

func (s *stateStore) Put(ctx context.Context, key, value string) error {
	q, args := entsql.Dialect(s.store.Dialect()).
		Insert(stateTable).
		Columns("key", "value").
		Values(key, value).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := s.store.drv.Exec(ctx, q, args, nil); err != nil {
		s.logger.Error("failed to write state", "key", key, "error", err)
		return fmt.Errorf("write state %s: %w", key, err)
	}
	return nil
}
