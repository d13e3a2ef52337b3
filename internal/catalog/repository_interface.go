package catalog

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetEquipment(ctx context.Context, tenantID, equipmentID int) (*Equipment, error)
	CurrentBasePrice(ctx context.Context, tenantID, productID int) (decimal.Decimal, error)
	WithTx(tx *sqlx.Tx) Repository
}
