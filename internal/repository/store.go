// Package repository owns all Postgres access for the capture pipeline:
// the transaction helper, the three table repositories (safe store, outbox,
// quarantine) and the level-4 disk failure log.
//
// Repositories are stateless; every method takes the pgx.Tx it must run on.
// Transaction boundaries belong to the callers (persistence core, outbox
// dispatcher), which compose multi-table writes through Store.WithTx. An
// "independent transaction" is simply a fresh WithTx call: it commits or
// fails on its own regardless of what happened to the transaction that
// triggered it.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the connection pool with the explicit transaction helper the
// rest of the pipeline is written against.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an initialised (and instrumented) pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn inside a transaction: begin, fn, commit, with rollback on
// any error path. fn's error is returned unwrapped so callers can classify
// it; begin/commit failures are wrapped.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsDataError reports whether err is a data-shaped Postgres failure:
// SQLSTATE class 22 (data exception) or 23 (integrity constraint violation).
// Data errors demote the persistence core to its per-item path and never
// count against the circuit breaker; everything else is a system failure.
func IsDataError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}
