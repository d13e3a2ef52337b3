package wallet

import (
	"context"
	"errors"
	"fmt"

	"becard/internal/apperr"
	"becard/internal/db"
	"becard/internal/logger"
	"becard/internal/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	maxAttempts = 3

	defaultPageSize = 50
	maxPageSize     = 200
)

// Service is the wallet ledger. Methods taking a *sqlx.Tx join the caller's unit of work;
// with a nil tx they run in a transaction of their own.
type Service interface {
	GetOrCreate(ctx context.Context, tx *sqlx.Tx, tenantID int, ownerType OwnerType, ownerID int) (*Wallet, error)
	Credit(ctx context.Context, tx *sqlx.Tx, m Movement) (*Transaction, error)
	Debit(ctx context.Context, tx *sqlx.Tx, m Movement) (*Transaction, error)
	TopUp(ctx context.Context, in TopUpInput) (*Wallet, *Transaction, error)
	Transactions(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int, limit, offset int) ([]Transaction, error)
}

type service struct {
	repo Repository
	tx   db.Transactor
}

func NewService(repo Repository, tx db.Transactor) Service {
	return &service{repo: repo, tx: tx}
}

func (s *service) repoFor(tx *sqlx.Tx) Repository {
	if tx == nil {
		return s.repo
	}
	return s.repo.WithTx(tx)
}

// GetOrCreate returns the active wallet of the owner, creating it on first use.
// Concurrent first use settles on a single row.
func (s *service) GetOrCreate(ctx context.Context, tx *sqlx.Tx, tenantID int, ownerType OwnerType, ownerID int) (*Wallet, error) {
	repo := s.repoFor(tx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		w, err := repo.FindByOwner(ctx, tenantID, ownerType, ownerID)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}

		if err := repo.InsertIfAbsent(ctx, tenantID, ownerType, ownerID); err != nil && !errors.Is(err, db.ErrUniqueViolation) {
			return nil, err
		}
	}

	return nil, apperr.Conflict("WALLET_CREATE_CONFLICT", "could not create wallet for %s %d", ownerType, ownerID)
}

func (s *service) Credit(ctx context.Context, tx *sqlx.Tx, m Movement) (*Transaction, error) {
	return s.move(ctx, tx, DirectionCredit, m)
}

func (s *service) Debit(ctx context.Context, tx *sqlx.Tx, m Movement) (*Transaction, error) {
	return s.move(ctx, tx, DirectionDebit, m)
}

func (s *service) move(ctx context.Context, tx *sqlx.Tx, dir Direction, m Movement) (*Transaction, error) {
	m.Amount = m.Amount.Round(2)
	if !m.Amount.IsPositive() {
		return nil, apperr.Validation("INVALID_AMOUNT", "amount must be positive")
	}

	if tx != nil {
		return s.apply(ctx, s.repo.WithTx(tx), dir, m)
	}

	var out *Transaction
	err := db.Retry(ctx, maxAttempts, func() error {
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			var err error
			out, err = s.apply(ctx, s.repo.WithTx(tx), dir, m)
			return err
		})
	})
	return out, err
}

// apply locks the wallet row, so the idempotency lookup, the balance check and the
// write all see the same balance.
func (s *service) apply(ctx context.Context, repo Repository, dir Direction, m Movement) (*Transaction, error) {
	w, err := repo.LockByID(ctx, m.WalletID)
	if err != nil {
		return nil, err
	}
	if !w.Active {
		return nil, apperr.InvalidState("WALLET_INACTIVE", "wallet %d is inactive", w.ID)
	}

	if m.IdempotencyKey != "" {
		existing, err := repo.FindTransaction(ctx, w.ID, dir, m.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			logger.Debug("wallet movement replayed", "wallet_id", w.ID, "direction", dir, "idempotency_key", m.IdempotencyKey)
			return existing, nil
		}
	}

	before := w.Balance
	var after decimal.Decimal
	switch dir {
	case DirectionDebit:
		if before.LessThan(m.Amount) {
			return nil, apperr.InsufficientFunds("balance %s is lower than %s", before.StringFixed(2), m.Amount.StringFixed(2))
		}
		after = before.Sub(m.Amount)
	default:
		after = before.Add(m.Amount)
	}

	w.Balance = after
	if err := repo.UpdateBalance(ctx, w); err != nil {
		return nil, err
	}

	t := &Transaction{
		WalletID:       w.ID,
		Direction:      dir,
		Amount:         m.Amount,
		BalanceBefore:  before,
		BalanceAfter:   after,
		ReferenceType:  optional(m.ReferenceType),
		ReferenceID:    optional(m.ReferenceID),
		IdempotencyKey: optional(m.IdempotencyKey),
		CreatedBy:      m.CreatedBy,
	}
	if err := repo.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	metrics.RecordWalletMovement(string(dir), m.Amount.InexactFloat64())
	logger.Info("wallet movement applied",
		"wallet_id", w.ID,
		"direction", dir,
		"amount", m.Amount.StringFixed(2),
		"balance_after", after.StringFixed(2),
		"reference", m.ReferenceType+":"+m.ReferenceID,
	)
	return t, nil
}

// TopUp credits the owner's wallet, creating it when missing.
func (s *service) TopUp(ctx context.Context, in TopUpInput) (*Wallet, *Transaction, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, nil, apperr.Validation("INVALID_AMOUNT", "amount must be positive")
	}

	var (
		w   *Wallet
		txn *Transaction
	)
	err := db.Retry(ctx, maxAttempts, func() error {
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			created, err := s.GetOrCreate(ctx, tx, in.TenantID, in.OwnerType, in.OwnerID)
			if err != nil {
				return err
			}

			txn, err = s.apply(ctx, s.repo.WithTx(tx), DirectionCredit, Movement{
				WalletID:       created.ID,
				Amount:         amount,
				ReferenceType:  RefTopUp,
				ReferenceID:    fmt.Sprintf("%s:%d", in.OwnerType, in.OwnerID),
				IdempotencyKey: in.IdempotencyKey,
				CreatedBy:      in.CreatedBy,
			})
			if err != nil {
				return err
			}

			w, err = s.repo.WithTx(tx).FindByOwner(ctx, in.TenantID, in.OwnerType, in.OwnerID)
			return err
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return w, txn, nil
}

// Transactions lists the owner's ledger newest first. An owner without a wallet has none.
func (s *service) Transactions(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	w, err := s.repo.FindByOwner(ctx, tenantID, ownerType, ownerID)
	if errors.Is(err, apperr.ErrNotFound) {
		return []Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}

	return s.repo.ListTransactions(ctx, w.ID, limit, offset)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
