package loyalty

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	ActiveRules(ctx context.Context, tenantID int, at time.Time) ([]Rule, error)
	GetBalance(ctx context.Context, tenantID, accountID int) (*Balance, error)
	LockBalance(ctx context.Context, tenantID, accountID int) (*Balance, error)
	SetBalance(ctx context.Context, tenantID, accountID int, points int64) error
	HasSaleAccrual(ctx context.Context, saleID int) (bool, error)
	InsertTransaction(ctx context.Context, t *Transaction) error
	WithTx(tx *sqlx.Tx) Repository
}
