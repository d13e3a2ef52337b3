package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"becard/internal/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
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

// GetEquipment returns active equipment whose point of sale is active and belongs to the tenant.
func (r *repository) GetEquipment(ctx context.Context, tenantID, equipmentID int) (*Equipment, error) {
	query := `
		SELECT e.id, p.tenant_id, e.point_of_sale_id, e.product_id, e.name, e.active
		FROM equipment e
		JOIN points_of_sale p ON p.id = e.point_of_sale_id
		WHERE e.id = $1 AND p.tenant_id = $2 AND e.active AND p.active
	`

	var eq Equipment
	err := sqlx.GetContext(ctx, r.db, &eq, query, equipmentID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("EQUIPMENT_NOT_FOUND", "equipment %d not found", equipmentID)
		}
		return nil, fmt.Errorf("get equipment: %w", err)
	}

	return &eq, nil
}

// CurrentBasePrice returns the latest open-ended price record of a tenant product.
func (r *repository) CurrentBasePrice(ctx context.Context, tenantID, productID int) (decimal.Decimal, error) {
	query := `
		SELECT pp.price
		FROM product_prices pp
		JOIN products p ON p.id = pp.product_id
		WHERE pp.product_id = $1 AND p.tenant_id = $2 AND pp.ends_at IS NULL
		ORDER BY pp.starts_at DESC, pp.id DESC
		LIMIT 1
	`

	var price decimal.Decimal
	err := sqlx.GetContext(ctx, r.db, &price, query, productID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, apperr.NotFound("BASE_PRICE_NOT_FOUND", "no base price for product %d", productID)
		}
		return decimal.Zero, fmt.Errorf("get base price: %w", err)
	}

	return price, nil
}
