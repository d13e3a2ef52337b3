package db

import (
	"context"
	"errors"
	"fmt"

	"becard/internal/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrUniqueViolation marks a lost insert race on a unique constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrSerialization marks a serialization failure or deadlock the store asked us to retry.
	ErrSerialization = errors.New("serialization failure")
)

// Transactor runs a unit of work inside a single store transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) Transactor {
	return &transactor{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (t *transactor) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", Classify(err))
	}
	return nil
}

// Classify maps postgres error codes the services retry on to package sentinels.
func Classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pqErr.Constraint)
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", ErrSerialization, pqErr.Message)
	}
	return err
}

// Retryable reports whether a unit of work failed on contention and may be re-run.
func Retryable(err error) bool {
	return errors.Is(err, ErrUniqueViolation) || errors.Is(err, ErrSerialization)
}

// Retry re-runs fn while it fails with a retryable error, at most attempts times.
// Contention that outlasts every attempt is reported as Conflict CONCURRENT_UPDATE.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !Retryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return apperr.Conflict("CONCURRENT_UPDATE", "concurrent update, retry the request").Wrap(err)
}
