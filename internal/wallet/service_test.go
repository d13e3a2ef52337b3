package wallet

import (
	"context"
	"fmt"
	"testing"

	"becard/internal/apperr"
	"becard/internal/db"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByOwner(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int) (*Wallet, error) {
	args := m.Called(ctx, tenantID, ownerType, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockRepository) InsertIfAbsent(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int) error {
	return m.Called(ctx, tenantID, ownerType, ownerID).Error(0)
}

func (m *MockRepository) LockByID(ctx context.Context, walletID int) (*Wallet, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockRepository) UpdateBalance(ctx context.Context, w *Wallet) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockRepository) FindTransaction(ctx context.Context, walletID int, direction Direction, idempotencyKey string) (*Transaction, error) {
	args := m.Called(ctx, walletID, direction, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) InsertTransaction(ctx context.Context, t *Transaction) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockRepository) ListTransactions(ctx context.Context, walletID int, limit, offset int) ([]Transaction, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockRepository) WithTx(tx *sqlx.Tx) Repository {
	return m
}

// fakeTransactor runs the unit of work without a database.
type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	f.calls++
	return fn(nil)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newWallet(balance string) *Wallet {
	return &Wallet{ID: 3, TenantID: 1, OwnerType: OwnerAccount, OwnerID: 5, Balance: dec(balance), Active: true}
}

func balanceIs(v string) interface{} {
	return mock.MatchedBy(func(w *Wallet) bool { return w.Balance.Equal(dec(v)) })
}

func TestDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("applies once and records balances", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("LockByID", ctx, 3).Return(newWallet("1000.00"), nil)
		repo.On("FindTransaction", ctx, 3, DirectionDebit, "dispense_session:abc").Return(nil, nil)
		repo.On("UpdateBalance", ctx, balanceIs("500.00")).Return(nil)
		repo.On("InsertTransaction", ctx, mock.AnythingOfType("*wallet.Transaction")).Return(nil)

		txn, err := svc.Debit(ctx, nil, Movement{
			WalletID:       3,
			Amount:         dec("500"),
			ReferenceType:  RefDispenseSession,
			ReferenceID:    "abc",
			IdempotencyKey: "dispense_session:abc",
		})

		require.NoError(t, err)
		assert.Equal(t, DirectionDebit, txn.Direction)
		assert.Equal(t, "1000.00", txn.BalanceBefore.StringFixed(2))
		assert.Equal(t, "500.00", txn.BalanceAfter.StringFixed(2))
		require.NotNil(t, txn.IdempotencyKey)
		assert.Equal(t, "dispense_session:abc", *txn.IdempotencyKey)
		repo.AssertExpectations(t)
	})

	t.Run("same key returns the original entry", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})
		original := &Transaction{ID: 11, WalletID: 3, Direction: DirectionDebit, Amount: dec("500"), BalanceAfter: dec("500")}

		repo.On("LockByID", ctx, 3).Return(newWallet("500.00"), nil)
		repo.On("FindTransaction", ctx, 3, DirectionDebit, "k1").Return(original, nil)

		txn, err := svc.Debit(ctx, nil, Movement{WalletID: 3, Amount: dec("500"), IdempotencyKey: "k1"})

		require.NoError(t, err)
		assert.Same(t, original, txn)
		repo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "InsertTransaction", mock.Anything, mock.Anything)
	})

	t.Run("insufficient funds leaves the balance alone", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("LockByID", ctx, 3).Return(newWallet("10.00"), nil)

		_, err := svc.Debit(ctx, nil, Movement{WalletID: 3, Amount: dec("10.01")})

		assert.ErrorIs(t, err, apperr.ErrInsufficientFunds)
		repo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything)
	})

	t.Run("exact balance drains to zero", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("LockByID", ctx, 3).Return(newWallet("10.00"), nil)
		repo.On("UpdateBalance", ctx, balanceIs("0")).Return(nil)
		repo.On("InsertTransaction", ctx, mock.Anything).Return(nil)

		txn, err := svc.Debit(ctx, nil, Movement{WalletID: 3, Amount: dec("10")})

		require.NoError(t, err)
		assert.True(t, txn.BalanceAfter.IsZero())
	})

	t.Run("inactive wallet", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})
		w := newWallet("100")
		w.Active = false

		repo.On("LockByID", ctx, 3).Return(w, nil)

		_, err := svc.Debit(ctx, nil, Movement{WalletID: 3, Amount: dec("1")})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}

func TestMove_RejectsNonPositiveAmounts(t *testing.T) {
	svc := NewService(new(MockRepository), &fakeTransactor{})

	for _, amount := range []string{"0", "-5", "0.004"} {
		_, err := svc.Credit(context.Background(), nil, Movement{WalletID: 3, Amount: dec(amount)})
		assert.ErrorIs(t, err, apperr.ErrValidation, amount)
	}
}

func TestCredit_QuantizesAmount(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, &fakeTransactor{})

	repo.On("LockByID", ctx, 3).Return(newWallet("1.00"), nil)
	repo.On("UpdateBalance", ctx, balanceIs("11.01")).Return(nil)
	repo.On("InsertTransaction", ctx, mock.Anything).Return(nil)

	txn, err := svc.Credit(ctx, nil, Movement{WalletID: 3, Amount: dec("10.005")})

	require.NoError(t, err)
	assert.Equal(t, "10.01", txn.Amount.StringFixed(2))
	repo.AssertExpectations(t)
}

func TestDebit_RetriesOnContention(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	tx := &fakeTransactor{}
	svc := NewService(repo, tx)

	repo.On("LockByID", ctx, 3).Return(newWallet("100.00"), nil).Once()
	repo.On("LockByID", ctx, 3).Return(newWallet("100.00"), nil).Once()
	repo.On("FindTransaction", ctx, 3, DirectionDebit, "k").Return(nil, nil)
	repo.On("UpdateBalance", ctx, balanceIs("60.00")).Return(nil)
	repo.On("InsertTransaction", ctx, mock.Anything).
		Return(fmt.Errorf("insert wallet transaction: %w", db.ErrUniqueViolation)).Once()
	repo.On("InsertTransaction", ctx, mock.Anything).Return(nil).Once()

	txn, err := svc.Debit(ctx, nil, Movement{WalletID: 3, Amount: dec("40"), IdempotencyKey: "k"})

	require.NoError(t, err)
	assert.Equal(t, "60.00", txn.BalanceAfter.StringFixed(2))
	assert.Equal(t, 2, tx.calls)
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("existing wallet", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("FindByOwner", ctx, 1, OwnerCard, 8).Return(&Wallet{ID: 4}, nil)

		w, err := svc.GetOrCreate(ctx, nil, 1, OwnerCard, 8)
		require.NoError(t, err)
		assert.Equal(t, 4, w.ID)
		repo.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates on first use", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("FindByOwner", ctx, 1, OwnerCard, 8).Return(nil, apperr.NotFound("WALLET_NOT_FOUND", "wallet not found")).Once()
		repo.On("InsertIfAbsent", ctx, 1, OwnerCard, 8).Return(nil).Once()
		repo.On("FindByOwner", ctx, 1, OwnerCard, 8).Return(&Wallet{ID: 4}, nil).Once()

		w, err := svc.GetOrCreate(ctx, nil, 1, OwnerCard, 8)
		require.NoError(t, err)
		assert.Equal(t, 4, w.ID)
		repo.AssertExpectations(t)
	})

	t.Run("lost race resolves to the winner", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("FindByOwner", ctx, 1, OwnerAccount, 5).Return(nil, apperr.NotFound("WALLET_NOT_FOUND", "wallet not found")).Once()
		repo.On("InsertIfAbsent", ctx, 1, OwnerAccount, 5).Return(fmt.Errorf("insert wallet: %w", db.ErrUniqueViolation)).Once()
		repo.On("FindByOwner", ctx, 1, OwnerAccount, 5).Return(&Wallet{ID: 9}, nil).Once()

		w, err := svc.GetOrCreate(ctx, nil, 1, OwnerAccount, 5)
		require.NoError(t, err)
		assert.Equal(t, 9, w.ID)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("FindByOwner", ctx, 1, OwnerAccount, 5).Return(nil, apperr.NotFound("WALLET_NOT_FOUND", "wallet not found"))
		repo.On("InsertIfAbsent", ctx, 1, OwnerAccount, 5).Return(nil)

		_, err := svc.GetOrCreate(ctx, nil, 1, OwnerAccount, 5)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		repo.AssertNumberOfCalls(t, "InsertIfAbsent", maxAttempts)
	})
}

func TestTopUp(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, &fakeTransactor{})
	staffID := 77

	repo.On("FindByOwner", ctx, 1, OwnerCard, 8).Return(&Wallet{ID: 4, Balance: dec("0"), Active: true}, nil).Once()
	repo.On("LockByID", ctx, 4).Return(&Wallet{ID: 4, Balance: dec("0"), Active: true}, nil)
	repo.On("FindTransaction", ctx, 4, DirectionCredit, "topup-1").Return(nil, nil)
	repo.On("UpdateBalance", ctx, balanceIs("1000.00")).Return(nil)
	repo.On("InsertTransaction", ctx, mock.MatchedBy(func(tx *Transaction) bool {
		return *tx.ReferenceType == RefTopUp && *tx.ReferenceID == "card:8" && *tx.CreatedBy == staffID
	})).Return(nil)
	repo.On("FindByOwner", ctx, 1, OwnerCard, 8).Return(&Wallet{ID: 4, Balance: dec("1000.00"), Active: true}, nil).Once()

	w, txn, err := svc.TopUp(ctx, TopUpInput{
		TenantID:       1,
		OwnerType:      OwnerCard,
		OwnerID:        8,
		Amount:         dec("1000"),
		IdempotencyKey: "topup-1",
		CreatedBy:      &staffID,
	})

	require.NoError(t, err)
	assert.Equal(t, "1000.00", w.Balance.StringFixed(2))
	assert.Equal(t, DirectionCredit, txn.Direction)
	repo.AssertExpectations(t)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("owner without wallet has no history", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("FindByOwner", ctx, 1, OwnerAccount, 5).Return(nil, apperr.NotFound("WALLET_NOT_FOUND", "wallet not found"))

		txs, err := svc.Transactions(ctx, 1, OwnerAccount, 5, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("page size is clamped", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, &fakeTransactor{})

		repo.On("FindByOwner", ctx, 1, OwnerAccount, 5).Return(&Wallet{ID: 3}, nil)
		repo.On("ListTransactions", ctx, 3, maxPageSize, 0).Return([]Transaction{{ID: 1}}, nil)

		txs, err := svc.Transactions(ctx, 1, OwnerAccount, 5, 10000, -3)
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})
}
