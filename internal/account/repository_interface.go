package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	FindByID(ctx context.Context, tenantID, id int) (*Account, error)
	FindByExternalID(ctx context.Context, tenantID int, externalID uuid.UUID) (*Account, error)
	FindByCustomerCode(ctx context.Context, tenantID int, code string) (*Account, error)
	WithTx(tx *sqlx.Tx) Repository
}
