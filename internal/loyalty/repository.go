package loyalty

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *repository) ActiveRules(ctx context.Context, tenantID int, at time.Time) ([]Rule, error) {
	query := `
		SELECT id, tenant_id, min_amount, points_per_unit, active, starts_at, ends_at
		FROM loyalty_rules
		WHERE tenant_id = $1 AND active AND starts_at <= $2 AND (ends_at IS NULL OR ends_at >= $2)
		ORDER BY id
	`

	var rules []Rule
	if err := sqlx.SelectContext(ctx, r.db, &rules, query, tenantID, at); err != nil {
		return nil, fmt.Errorf("select loyalty rules: %w", err)
	}
	return rules, nil
}

func (r *repository) GetBalance(ctx context.Context, tenantID, accountID int) (*Balance, error) {
	var b Balance
	err := sqlx.GetContext(ctx, r.db, &b, `
		SELECT tenant_id, account_id, points
		FROM loyalty_balances
		WHERE tenant_id = $1 AND account_id = $2
	`, tenantID, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Balance{TenantID: tenantID, AccountID: accountID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get loyalty balance: %w", err)
	}
	return &b, nil
}

// LockBalance creates the balance row on first use and locks it for the rest of the transaction.
func (r *repository) LockBalance(ctx context.Context, tenantID, accountID int) (*Balance, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loyalty_balances (tenant_id, account_id, points)
		VALUES ($1, $2, 0)
		ON CONFLICT (tenant_id, account_id) DO NOTHING
	`, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("ensure loyalty balance: %w", db.Classify(err))
	}

	var b Balance
	err = sqlx.GetContext(ctx, r.db, &b, `
		SELECT tenant_id, account_id, points
		FROM loyalty_balances
		WHERE tenant_id = $1 AND account_id = $2
		FOR UPDATE
	`, tenantID, accountID)
	if err != nil {
		return nil, fmt.Errorf("lock loyalty balance: %w", err)
	}
	return &b, nil
}

func (r *repository) SetBalance(ctx context.Context, tenantID, accountID int, points int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE loyalty_balances
		SET points = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND account_id = $3
	`, points, tenantID, accountID)
	if err != nil {
		return fmt.Errorf("update loyalty balance: %w", err)
	}
	return nil
}

func (r *repository) HasSaleAccrual(ctx context.Context, saleID int) (bool, error) {
	exists, err := db.Exists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM loyalty_transactions WHERE sale_id = $1 AND kind = $2)`,
		saleID, KindSale,
	)
	if err != nil {
		return false, fmt.Errorf("check loyalty accrual: %w", err)
	}
	return exists, nil
}

func (r *repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	query := `
		INSERT INTO loyalty_transactions
			(tenant_id, account_id, sale_id, kind, points_earned, points_redeemed, balance_before, balance_after, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		t.TenantID, t.AccountID, t.SaleID, t.Kind,
		t.PointsEarned, t.PointsRedeemed, t.BalanceBefore, t.BalanceAfter, t.Description,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert loyalty transaction: %w", db.Classify(err))
	}
	return nil
}
