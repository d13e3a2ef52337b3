package pricing

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// ActiveRules returns active tenant rules valid at the given instant, scopes loaded.
	ActiveRules(ctx context.Context, tenantID int, at time.Time) ([]Rule, error)
	WithTx(tx *sqlx.Tx) Repository
}
