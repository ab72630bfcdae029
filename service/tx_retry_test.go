package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func TestWithConflictRetry_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := withConflictRetry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithConflictRetry_RetriesSerializationFailure(t *testing.T) {
	calls := 0
	err := withConflictRetry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return serializationFailure()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithConflictRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := withConflictRetry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		return serializationFailure()
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, calls)
}

func TestWithConflictRetry_OtherErrorsNotRetried(t *testing.T) {
	boom := errors.New("column does not exist")
	calls := 0
	err := withConflictRetry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithConflictRetry_WrappedSerializationFailure(t *testing.T) {
	calls := 0
	err := withConflictRetry(context.Background(), 2, func(ctx context.Context) error {
		calls++
		return errors.Join(errors.New("commit failed"), serializationFailure())
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, calls)
}
