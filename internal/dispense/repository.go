package dispense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"becard/internal/apperr"
	"becard/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, external_id, tenant_id, equipment_id, product_id, account_id, card_hash, unit_price,
	requested_ml, authorized_ml, poured_ml, estimated_amount, final_amount, payment_mode, status,
	idempotency_key, sale_id, payment_id, created_at, completed_at`

type repository struct {
	db sqlx.ExtContext
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sqlx.Tx) Repository {
	return &repository{db: tx}
}

// FindIdempotent returns the still-open session created with key, or nil.
func (r *repository) FindIdempotent(ctx context.Context, tenantID, equipmentID int, key string) (*Session, error) {
	var s Session
	err := sqlx.GetContext(ctx, r.db, &s, `
		SELECT `+sessionColumns+`
		FROM dispense_sessions
		WHERE tenant_id = $1 AND equipment_id = $2 AND idempotency_key = $3 AND status = 'created'
	`, tenantID, equipmentID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find idempotent session: %w", err)
	}
	return &s, nil
}

func (r *repository) Create(ctx context.Context, s *Session) error {
	if s.ExternalID == uuid.Nil {
		s.ExternalID = uuid.New()
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO dispense_sessions (
			external_id, tenant_id, equipment_id, product_id, account_id, card_hash, unit_price,
			requested_ml, authorized_ml, estimated_amount, payment_mode, idempotency_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, status, created_at
	`,
		s.ExternalID, s.TenantID, s.EquipmentID, s.ProductID, s.AccountID, s.CardHash, s.UnitPrice,
		s.RequestedML, s.AuthorizedML, s.EstimatedAmount, s.PaymentMode, s.IdempotencyKey,
	).Scan(&s.ID, &s.Status, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", db.Classify(err))
	}
	return nil
}

func (r *repository) LockByExternalID(ctx context.Context, tenantID int, id uuid.UUID) (*Session, error) {
	var s Session
	err := sqlx.GetContext(ctx, r.db, &s, `
		SELECT `+sessionColumns+`
		FROM dispense_sessions
		WHERE external_id = $1 AND tenant_id = $2
		FOR UPDATE
	`, id, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("SESSION_NOT_FOUND", "session %s not found", id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// Settle writes the single completion update of a created session.
func (r *repository) Settle(ctx context.Context, s *Session) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE dispense_sessions
		SET poured_ml = $1, final_amount = $2, status = $3, sale_id = $4, payment_id = $5, completed_at = NOW()
		WHERE id = $6 AND status = 'created'
		RETURNING completed_at
	`, s.PouredML, s.FinalAmount, s.Status, s.SaleID, s.PaymentID, s.ID).Scan(&s.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.InvalidState("SESSION_NOT_OPEN", "session %s is no longer open", s.ExternalID)
	}
	if err != nil {
		return fmt.Errorf("settle session: %w", db.Classify(err))
	}
	return nil
}

// CompleteBySale closes the session waiting on the sale's external payment.
func (r *repository) CompleteBySale(ctx context.Context, saleID int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dispense_sessions
		SET status = 'completed'
		WHERE sale_id = $1 AND status = 'pending_payment'
	`, saleID)
	if err != nil {
		return 0, fmt.Errorf("complete session by sale: %w", err)
	}
	return res.RowsAffected()
}

func (r *repository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dispense_sessions
		SET status = 'expired'
		WHERE status = 'created' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return res.RowsAffected()
}
