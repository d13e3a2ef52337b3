package card

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"becard/internal/apperr"
	"becard/internal/db"

	"github.com/jmoiron/sqlx"
)

const selectAssignment = `
	SELECT id, tenant_id, card_id, account_id, assignment_type, active, assigned_at, assigned_by, unassigned_at
	FROM card_assignments
	WHERE card_id = $1 AND active
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

// FindByHash looks the card up across tenants; callers decide how a foreign tenant is reported.
func (r *repository) FindByHash(ctx context.Context, uidHash string) (*Card, error) {
	var c Card
	err := sqlx.GetContext(ctx, r.db, &c, `
		SELECT id, tenant_id, uid_hash, active, created_at
		FROM cards
		WHERE uid_hash = $1 AND active
	`, uidHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("CARD_NOT_FOUND", "card not found")
		}
		return nil, fmt.Errorf("get card by hash: %w", err)
	}
	return &c, nil
}

func (r *repository) GetByID(ctx context.Context, tenantID, id int) (*Card, error) {
	var c Card
	err := sqlx.GetContext(ctx, r.db, &c, `
		SELECT id, tenant_id, uid_hash, active, created_at
		FROM cards
		WHERE id = $1 AND tenant_id = $2 AND active
	`, id, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("CARD_NOT_FOUND", "card %d not found", id)
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return &c, nil
}

func (r *repository) Create(ctx context.Context, tenantID int, uidHash string) (*Card, error) {
	var c Card
	err := sqlx.GetContext(ctx, r.db, &c, `
		INSERT INTO cards (tenant_id, uid_hash)
		VALUES ($1, $2)
		RETURNING id, tenant_id, uid_hash, active, created_at
	`, tenantID, uidHash)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", db.Classify(err))
	}
	return &c, nil
}

func (r *repository) ActiveAssignment(ctx context.Context, cardID int) (*Assignment, error) {
	return r.activeAssignment(ctx, selectAssignment, cardID)
}

func (r *repository) LockActiveAssignment(ctx context.Context, cardID int) (*Assignment, error) {
	return r.activeAssignment(ctx, selectAssignment+"FOR UPDATE", cardID)
}

func (r *repository) activeAssignment(ctx context.Context, query string, cardID int) (*Assignment, error) {
	var a Assignment
	err := sqlx.GetContext(ctx, r.db, &a, query, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card assignment: %w", err)
	}
	return &a, nil
}

func (r *repository) DeactivateAssignment(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE card_assignments
		SET active = FALSE, unassigned_at = NOW()
		WHERE id = $1 AND active
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate card assignment: %w", err)
	}
	return nil
}

func (r *repository) InsertAssignment(ctx context.Context, a *Assignment) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO card_assignments (tenant_id, card_id, account_id, assignment_type, assigned_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, active, assigned_at
	`, a.TenantID, a.CardID, a.AccountID, a.Type, a.AssignedBy).Scan(&a.ID, &a.Active, &a.AssignedAt)
	if err != nil {
		return fmt.Errorf("insert card assignment: %w", db.Classify(err))
	}
	return nil
}
