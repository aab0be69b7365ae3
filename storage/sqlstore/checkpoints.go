package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/poiesic/enricher/core"
	"github.com/poiesic/enricher/storage"
)

const checkpointsTable = "checkpoints"

// SaveCheckpoint upserts the checkpoint under its name.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *core.Checkpoint) error {
	if cp == nil || cp.Name == "" {
		return storage.ErrInvalidQuery
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	cp.UpdatedAt = s.now()

	query, args, err := s.sb.Insert(checkpointsTable).
		Columns("name", "cycle_id", "started_at", "finished_at",
			"attempted", "succeeded", "failed_count", "deferred_count", "updated_at").
		Values(cp.Name, cp.CycleID, toMicros(cp.StartedAt), toMicros(cp.FinishedAt),
			cp.Attempted, cp.Succeeded, cp.Failed, cp.Deferred, toMicros(cp.UpdatedAt)).
		Suffix(`ON CONFLICT (name) DO UPDATE SET
			cycle_id = excluded.cycle_id,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			attempted = excluded.attempted,
			succeeded = excluded.succeeded,
			failed_count = excluded.failed_count,
			deferred_count = excluded.deferred_count,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// LoadCheckpoint returns the checkpoint stored under name.
// Returns nil, nil if no checkpoint exists.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query, args, err := s.sb.Select("name", "cycle_id", "started_at", "finished_at",
		"attempted", "succeeded", "failed_count", "deferred_count", "updated_at").
		From(checkpointsTable).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		cp                           core.Checkpoint
		started, finished, updatedAt int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&cp.Name, &cp.CycleID, &started, &finished,
		&cp.Attempted, &cp.Succeeded, &cp.Failed, &cp.Deferred, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cp.StartedAt = fromMicros(started)
	cp.FinishedAt = fromMicros(finished)
	cp.UpdatedAt = fromMicros(updatedAt)
	return &cp, nil
}
