package sale

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateSale(ctx context.Context, s *Sale) error
	CreatePayment(ctx context.Context, p *Payment) error
	LockSaleByExternalID(ctx context.Context, tenantID int, externalID uuid.UUID) (*Sale, error)
	GetSale(ctx context.Context, tenantID, id int) (*Sale, error)
	SetSaleAccount(ctx context.Context, saleID, accountID int) error
	LockPaymentByProviderRef(ctx context.Context, tenantID int, providerRef string) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, p *Payment) error
	LatestPayment(ctx context.Context, saleID int) (*Payment, error)
	WithTx(tx *sqlx.Tx) Repository
}
