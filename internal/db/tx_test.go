package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"becard/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	unique := Classify(&pq.Error{Code: "23505", Constraint: "wallets_owner_uq"})
	assert.True(t, errors.Is(unique, ErrUniqueViolation))
	assert.True(t, Retryable(unique))

	deadlock := Classify(fmt.Errorf("wrapped: %w", &pq.Error{Code: "40P01"}))
	assert.True(t, errors.Is(deadlock, ErrSerialization))

	other := &pq.Error{Code: "23503"}
	assert.Equal(t, error(other), Classify(other))
	assert.False(t, Retryable(other))
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		if calls < 2 {
			return ErrUniqueViolation
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		return fmt.Errorf("insert: %w", ErrUniqueViolation)
	})

	assert.True(t, errors.Is(err, ErrUniqueViolation))
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, "CONCURRENT_UPDATE", apperr.CodeOf(err))
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustedSerializationIsConflict(t *testing.T) {
	err := Retry(context.Background(), 2, func() error {
		return Classify(&pq.Error{Code: "40001", Message: "could not serialize access"})
	})

	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.True(t, errors.Is(err, ErrSerialization))
}

func TestRetry_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Retry(context.Background(), 3, func() error {
		calls++
		return boom
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestWithinTx_CommitAndRollback(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	tr := NewTransactor(sqlx.NewDb(sqlDB, "sqlmock"))

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, tr.WithinTx(context.Background(), func(tx *sqlx.Tx) error { return nil }))

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	assert.Equal(t, boom, tr.WithinTx(context.Background(), func(tx *sqlx.Tx) error { return boom }))

	assert.NoError(t, mock.ExpectationsWereMet())
}
