package dispense

import (
	"context"
	"regexp"
	"testing"
	"time"

	"becard/internal/apperr"
	"becard/internal/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionCols = []string{"id", "external_id", "tenant_id", "equipment_id", "product_id", "account_id", "card_hash", "unit_price",
	"requested_ml", "authorized_ml", "poured_ml", "estimated_amount", "final_amount", "payment_mode", "status",
	"idempotency_key", "sale_id", "payment_id", "created_at", "completed_at"}

func setupSessionMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(sqlDB, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestFindIdempotent(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("idempotency_key = $3 AND status = 'created'")).
		WithArgs(1, 2, "k-1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(
			5, sessionID.String(), 1, 2, 3, 9, nil, "1000.00",
			500, 500, nil, "500.00", nil, "wallet", "created",
			"k-1", nil, nil, now, nil,
		))

	s, err := repo.FindIdempotent(context.Background(), 1, 2, "k-1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, sessionID, s.ExternalID)
	assert.Equal(t, StatusCreated, s.Status)
	assert.Nil(t, s.PouredML)
	assert.False(t, s.FinalAmount.Valid)
	assert.True(t, s.UnitPrice.Equal(decimal.NewFromInt(1000)))
}

func TestFindIdempotent_None(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM dispense_sessions")).
		WithArgs(1, 2, "k-1").
		WillReturnRows(sqlmock.NewRows(sessionCols))

	s, err := repo.FindIdempotent(context.Background(), 1, 2, "k-1")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCreate_IdempotencyRace(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dispense_sessions")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "dispense_sessions_idem_uq"})

	key := "k-1"
	err := repo.Create(context.Background(), &Session{TenantID: 1, EquipmentID: 2, ProductID: 3, RequestedML: 500, PaymentMode: ModeWallet, IdempotencyKey: &key})
	assert.ErrorIs(t, err, db.ErrUniqueViolation)
}

func TestLockByExternalID_Missing(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(sessionID, 1).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := repo.LockByExternalID(context.Background(), 1, sessionID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "SESSION_NOT_FOUND", apperr.CodeOf(err))
}

func TestSettle(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	now := time.Now()
	poured := 500
	saleID, paymentID := 11, 21
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $6 AND status = 'created'")).
		WithArgs(500, "500", "completed", 11, 21, 5).
		WillReturnRows(sqlmock.NewRows([]string{"completed_at"}).AddRow(now))

	s := &Session{ID: 5, ExternalID: sessionID, PouredML: &poured, FinalAmount: decimal.NewNullDecimal(decimal.NewFromInt(500)),
		Status: StatusCompleted, SaleID: &saleID, PaymentID: &paymentID}
	require.NoError(t, repo.Settle(context.Background(), s))
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, now, *s.CompletedAt)
}

func TestSettle_AlreadyClosed(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE dispense_sessions")).
		WillReturnRows(sqlmock.NewRows([]string{"completed_at"}))

	poured := 0
	err := repo.Settle(context.Background(), &Session{ID: 5, ExternalID: sessionID, PouredML: &poured, Status: StatusCompleted})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCompleteBySale(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("WHERE sale_id = $1 AND status = 'pending_payment'")).
		WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.CompleteBySale(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestExpireStale(t *testing.T) {
	repo, mock, close := setupSessionMock(t)
	defer close()

	cutoff := time.Now().Add(-15 * time.Minute)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'expired'")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ExpireStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
