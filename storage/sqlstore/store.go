// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package sqlstore implements storage.Repository on SQLite or PostgreSQL.
//
// SQLite uses the pure-Go modernc.org/sqlite driver. PostgreSQL goes
// through a pgx connection pool exposed as *sql.DB, so both drivers share
// the same squirrel-built queries and differ only in placeholder format.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/poiesic/enricher/storage"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the driver and connection.
type Config struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // file path or ":memory:" for sqlite; connection URL for postgres

	// Postgres pool sizing; zero keeps pgx defaults.
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Store implements storage.Repository over database/sql.
type Store struct {
	db     *sql.DB
	pool   *pgxpool.Pool // nil for sqlite
	sb     sq.StatementBuilderType
	now    func() time.Time
	logger *slog.Logger
	closed atomic.Bool
}

var _ storage.Repository = (*Store)(nil)

// Open connects to the database described by cfg and creates the schema
// if needed.
//
// Returns storage.Repository interface to enforce abstraction.
func Open(ctx context.Context, cfg Config) (storage.Repository, error) {
	return open(ctx, cfg)
}

func open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, ErrDSNRequired
	}

	logger := slog.Default().With("component", "sqlstore", "driver", cfg.Driver)
	s := &Store{
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}

	switch cfg.Driver {
	case DriverSQLite, "":
		db, err := sql.Open(DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// One connection: ":memory:" databases are per connection, and
		// SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
		s.db = db
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

	case DriverPostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.db = stdlib.OpenDBFromPool(pool)
		s.sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedBackend, cfg.Driver)
	}

	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("database opened")
	return s, nil
}

func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "enricher"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database and, for postgres, the pool.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// withTx runs fn in a transaction, committing if fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}
