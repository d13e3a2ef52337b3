package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"becard/internal/apperr"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const selectAccount = `
	SELECT id, tenant_id, external_id, customer_code, name, email, active, created_at
	FROM accounts
`

type repository struct {
	db sqlx.ExtContext
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sqlx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, tenantID, id int) (*Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE id = $1 AND tenant_id = $2 AND active`, id, tenantID)
}

func (r *repository) FindByExternalID(ctx context.Context, tenantID int, externalID uuid.UUID) (*Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE external_id = $1 AND tenant_id = $2 AND active`, externalID, tenantID)
}

func (r *repository) FindByCustomerCode(ctx context.Context, tenantID int, code string) (*Account, error) {
	return r.findOne(ctx, selectAccount+`WHERE customer_code = $1 AND tenant_id = $2 AND active`, code, tenantID)
}

func (r *repository) findOne(ctx context.Context, query string, args ...interface{}) (*Account, error) {
	var a Account
	if err := sqlx.GetContext(ctx, r.db, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("ACCOUNT_NOT_FOUND", "account not found")
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}
