package card

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	FindByHash(ctx context.Context, uidHash string) (*Card, error)
	GetByID(ctx context.Context, tenantID, id int) (*Card, error)
	Create(ctx context.Context, tenantID int, uidHash string) (*Card, error)
	ActiveAssignment(ctx context.Context, cardID int) (*Assignment, error)
	LockActiveAssignment(ctx context.Context, cardID int) (*Assignment, error)
	DeactivateAssignment(ctx context.Context, id int) error
	InsertAssignment(ctx context.Context, a *Assignment) error
	WithTx(tx *sqlx.Tx) Repository
}
