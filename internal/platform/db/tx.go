package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

// SQLSTATE codes that signal contention rather than a broken request.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// RetryPolicy bounds how often a contended transaction is replayed.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy is used when callers pass a zero policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: 20 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay * 16
	}
	return p
}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// RunInTx runs fn in a fresh transaction, replaying it while Postgres reports
// contention. Exhausted retries surface as a shared conflict error.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, policy RetryPolicy, fn func(pgx.Tx) error) error {
	return Retry(ctx, policy, func() error {
		return WithTx(ctx, pool, fn)
	})
}

// Retry replays fn with exponential backoff while it fails with a transient
// error. Other errors are returned as-is on first occurrence.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	policy = policy.normalize()
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.BaseDelay
	exp.MaxInterval = policy.MaxDelay
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(policy.MaxRetries)), ctx)

	err := backoff.Retry(func() error {
		err := fn()
		if err == nil || IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
	if err != nil && IsTransient(err) {
		return shared.Conflict("transaction", "", err)
	}
	return err
}

// IsTransient reports whether err is a lock or serialization failure that a
// replay of the same transaction may resolve.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint failure,
// optionally restricted to one constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
