package sale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"becard/internal/apperr"
	"becard/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	saleColumns    = `id, external_id, tenant_id, equipment_id, product_id, account_id, volume_ml, amount, discount, sold_at`
	paymentColumns = `id, tenant_id, sale_id, method, amount, status, provider_ref, rejection_reason, created_at, updated_at`
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

// CreateSale assigns a fresh external id when s has none.
func (r *repository) CreateSale(ctx context.Context, s *Sale) error {
	if s.ExternalID == uuid.Nil {
		s.ExternalID = uuid.New()
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO sales (external_id, tenant_id, equipment_id, product_id, account_id, volume_ml, amount, discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, sold_at
	`, s.ExternalID, s.TenantID, s.EquipmentID, s.ProductID, s.AccountID, s.VolumeML, s.Amount, s.Discount).
		Scan(&s.ID, &s.SoldAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", db.Classify(err))
	}
	return nil
}

func (r *repository) CreatePayment(ctx context.Context, p *Payment) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payments (tenant_id, sale_id, method, amount, status, provider_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.TenantID, p.SaleID, p.Method, p.Amount, p.Status, p.ProviderRef).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", db.Classify(err))
	}
	return nil
}

func (r *repository) LockSaleByExternalID(ctx context.Context, tenantID int, externalID uuid.UUID) (*Sale, error) {
	var s Sale
	err := sqlx.GetContext(ctx, r.db, &s, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE external_id = $1 AND tenant_id = $2
		FOR UPDATE
	`, externalID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("SALE_NOT_FOUND", "sale %s not found", externalID)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

func (r *repository) GetSale(ctx context.Context, tenantID, id int) (*Sale, error) {
	var s Sale
	err := sqlx.GetContext(ctx, r.db, &s, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("SALE_NOT_FOUND", "sale %d not found", id)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

func (r *repository) SetSaleAccount(ctx context.Context, saleID, accountID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sales SET account_id = $1 WHERE id = $2`, accountID, saleID)
	if err != nil {
		return fmt.Errorf("set sale account: %w", err)
	}
	return nil
}

// LockPaymentByProviderRef returns the newest payment of the tenant carrying the provider reference.
func (r *repository) LockPaymentByProviderRef(ctx context.Context, tenantID int, providerRef string) (*Payment, error) {
	var p Payment
	err := sqlx.GetContext(ctx, r.db, &p, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1 AND provider_ref = $2
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`, tenantID, providerRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("PAYMENT_NOT_FOUND", "payment not found")
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, p *Payment) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE payments
		SET status = $1, rejection_reason = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`, p.Status, p.RejectionReason, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment: %w", db.Classify(err))
	}
	return nil
}

// LatestPayment returns nil when the sale has no payment.
func (r *repository) LatestPayment(ctx context.Context, saleID int) (*Payment, error) {
	var p Payment
	err := sqlx.GetContext(ctx, r.db, &p, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE sale_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, saleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest payment: %w", err)
	}
	return &p, nil
}
