package dispense

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	FindIdempotent(ctx context.Context, tenantID, equipmentID int, key string) (*Session, error)
	Create(ctx context.Context, s *Session) error
	LockByExternalID(ctx context.Context, tenantID int, id uuid.UUID) (*Session, error)
	Settle(ctx context.Context, s *Session) error
	CompleteBySale(ctx context.Context, saleID int) (int64, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx *sqlx.Tx) Repository
}
