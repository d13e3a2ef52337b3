package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type ScopeType string

const (
	ScopeProduct     ScopeType = "product"
	ScopeEquipment   ScopeType = "equipment"
	ScopePointOfSale ScopeType = "point_of_sale"
)

// Rule either pins the price (Price set) or scales the base price (Multiplier set).
type Rule struct {
	ID          int                 `db:"id" json:"id"`
	TenantID    int                 `db:"tenant_id" json:"tenant_id"`
	Name        string              `db:"name" json:"name"`
	Price       decimal.NullDecimal `db:"price" json:"price"`
	Multiplier  decimal.NullDecimal `db:"multiplier" json:"multiplier"`
	Priority    Priority            `db:"priority" json:"priority"`
	Active      bool                `db:"active" json:"active"`
	StartsAt    time.Time           `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time           `db:"ends_at" json:"ends_at"`
	WeekdayMask int                 `db:"weekday_mask" json:"weekday_mask"`
	Scopes      []Scope             `db:"-" json:"scopes"`
}

type Scope struct {
	RuleID   int       `db:"rule_id" json:"rule_id"`
	Type     ScopeType `db:"scope_type" json:"scope_type"`
	EntityID int       `db:"entity_id" json:"entity_id"`
}

// Query identifies what is being priced and where.
type Query struct {
	TenantID      int
	ProductID     int
	EquipmentID   *int
	PointOfSaleID *int
	At            time.Time
}

type Calculation struct {
	BasePrice            decimal.Decimal  `json:"base_price"`
	FinalPrice           decimal.Decimal  `json:"final_price"`
	AppliedRuleNames     []string         `json:"applied_rule_names"`
	CumulativeMultiplier decimal.Decimal  `json:"cumulative_multiplier"`
	Discount             *decimal.Decimal `json:"discount,omitempty"`
}

type CalculateRequest struct {
	ProductID     int        `json:"product_id" binding:"required,gt=0"`
	EquipmentID   *int       `json:"equipment_id,omitempty" binding:"omitempty,gt=0"`
	PointOfSaleID *int       `json:"point_of_sale_id,omitempty" binding:"omitempty,gt=0"`
	At            *time.Time `json:"at,omitempty"`
}
