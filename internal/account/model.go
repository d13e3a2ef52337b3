package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is a named customer within a tenant.
type Account struct {
	ID           int       `db:"id" json:"id"`
	TenantID     int       `db:"tenant_id" json:"tenant_id"`
	ExternalID   uuid.UUID `db:"external_id" json:"external_id"`
	CustomerCode *string   `db:"customer_code" json:"customer_code,omitempty"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Reference identifies an account by one of its public identifiers.
type Reference struct {
	ExternalID   *uuid.UUID `json:"account_external_id,omitempty"`
	CustomerCode *string    `json:"customer_code,omitempty"`
}
