package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

const KindSale = "sale"

// Rule converts a settled amount into points: PointsPerUnit points per currency unit
// once the amount reaches MinAmount.
type Rule struct {
	ID            int             `db:"id" json:"id"`
	TenantID      int             `db:"tenant_id" json:"tenant_id"`
	MinAmount     decimal.Decimal `db:"min_amount" json:"min_amount"`
	PointsPerUnit decimal.Decimal `db:"points_per_unit" json:"points_per_unit"`
	Active        bool            `db:"active" json:"active"`
	StartsAt      time.Time       `db:"starts_at" json:"starts_at"`
	EndsAt        *time.Time      `db:"ends_at" json:"ends_at,omitempty"`
}

type Balance struct {
	TenantID  int   `db:"tenant_id" json:"tenant_id"`
	AccountID int   `db:"account_id" json:"account_id"`
	Points    int64 `db:"points" json:"points"`
}

type Transaction struct {
	ID             int       `db:"id" json:"id"`
	TenantID       int       `db:"tenant_id" json:"tenant_id"`
	AccountID      int       `db:"account_id" json:"account_id"`
	SaleID         *int      `db:"sale_id" json:"sale_id,omitempty"`
	Kind           string    `db:"kind" json:"kind"`
	PointsEarned   int64     `db:"points_earned" json:"points_earned"`
	PointsRedeemed int64     `db:"points_redeemed" json:"points_redeemed"`
	BalanceBefore  int64     `db:"balance_before" json:"balance_before"`
	BalanceAfter   int64     `db:"balance_after" json:"balance_after"`
	Description    string    `db:"description" json:"description"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Accrual describes points earned by one settled sale.
type Accrual struct {
	TenantID    int
	AccountID   int
	SaleID      int
	Amount      decimal.Decimal
	Description string
	At          time.Time
}
