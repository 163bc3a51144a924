package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

var fastPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestRetryRecoversFromContention(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: codeSerializationFailure}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryExhaustionIsConflict(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		attempts++
		return &pgconn.PgError{Code: codeDeadlockDetected}
	})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, shared.KindConflict, shared.KindOf(err))
	require.Equal(t, fastPolicy.MaxRetries+1, attempts)
}

func TestRetryDoesNotReplayDomainErrors(t *testing.T) {
	attempts := 0
	domainErr := shared.Validation("booking", 1, "bad window")
	err := Retry(context.Background(), fastPolicy, func() error {
		attempts++
		return domainErr
	})
	require.Same(t, domainErr, err)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, 1, attempts)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "uq_room_basics"}
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "uq_room_basics"))
	require.False(t, IsUniqueViolation(err, "other"))
	require.False(t, IsUniqueViolation(errors.New("x"), ""))
}
