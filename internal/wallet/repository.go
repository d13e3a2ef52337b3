package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"becard/internal/apperr"
	"becard/internal/db"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db sqlx.ExtContext
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sqlx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByOwner(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int) (*Wallet, error) {
	var w Wallet
	err := sqlx.GetContext(ctx, r.db, &w, `
		SELECT id, tenant_id, owner_type, owner_id, balance, active, created_at, updated_at
		FROM wallets
		WHERE tenant_id = $1 AND owner_type = $2 AND owner_id = $3 AND active
	`, tenantID, ownerType, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("WALLET_NOT_FOUND", "wallet not found")
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (r *repository) InsertIfAbsent(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (tenant_id, owner_type, owner_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, owner_type, owner_id) WHERE active DO NOTHING
	`, tenantID, ownerType, ownerID)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", db.Classify(err))
	}
	return nil
}

func (r *repository) LockByID(ctx context.Context, walletID int) (*Wallet, error) {
	var w Wallet
	err := sqlx.GetContext(ctx, r.db, &w, `
		SELECT id, tenant_id, owner_type, owner_id, balance, active, created_at, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("WALLET_NOT_FOUND", "wallet %d not found", walletID)
		}
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	return &w, nil
}

func (r *repository) UpdateBalance(ctx context.Context, w *Wallet) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE wallets
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`, w.Balance, w.ID).Scan(&w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", db.Classify(err))
	}
	return nil
}

// FindTransaction returns the entry already recorded under the key, or nil when there is none.
func (r *repository) FindTransaction(ctx context.Context, walletID int, direction Direction, idempotencyKey string) (*Transaction, error) {
	var t Transaction
	err := sqlx.GetContext(ctx, r.db, &t, `
		SELECT id, wallet_id, direction, amount, balance_before, balance_after,
		       reference_type, reference_id, idempotency_key, created_by, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1 AND direction = $2 AND idempotency_key = $3
	`, walletID, direction, idempotencyKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet transaction: %w", err)
	}
	return &t, nil
}

func (r *repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO wallet_transactions
			(wallet_id, direction, amount, balance_before, balance_after,
			 reference_type, reference_id, idempotency_key, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		t.WalletID, t.Direction, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.ReferenceType, t.ReferenceID, t.IdempotencyKey, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", db.Classify(err))
	}
	return nil
}

func (r *repository) ListTransactions(ctx context.Context, walletID int, limit, offset int) ([]Transaction, error) {
	txs := []Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &txs, `
		SELECT id, wallet_id, direction, amount, balance_before, balance_after,
		       reference_type, reference_id, idempotency_key, created_by, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	return txs, nil
}
