package wallet

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	FindByOwner(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int) (*Wallet, error)
	InsertIfAbsent(ctx context.Context, tenantID int, ownerType OwnerType, ownerID int) error
	LockByID(ctx context.Context, walletID int) (*Wallet, error)
	UpdateBalance(ctx context.Context, w *Wallet) error
	FindTransaction(ctx context.Context, walletID int, direction Direction, idempotencyKey string) (*Transaction, error)
	InsertTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, walletID int, limit, offset int) ([]Transaction, error)
	WithTx(tx *sqlx.Tx) Repository
}
