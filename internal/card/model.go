package card

import (
	"time"

	"becard/internal/account"

	"github.com/shopspring/decimal"
)

type AssignmentType string

const (
	AssignmentAccount   AssignmentType = "account"
	AssignmentAnonymous AssignmentType = "anonymous_wallet"
)

type LookupStatus string

const (
	StatusUnknown         LookupStatus = "unknown"
	StatusAssignedUser    LookupStatus = "assigned_user"
	StatusAnonymousWallet LookupStatus = "anonymous_wallet"
)

// Card stores only the keyed hash of the physical identifier.
type Card struct {
	ID        int       `db:"id" json:"id"`
	TenantID  int       `db:"tenant_id" json:"tenant_id"`
	UIDHash   string    `db:"uid_hash" json:"-"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Assignment struct {
	ID           int            `db:"id" json:"id"`
	TenantID     int            `db:"tenant_id" json:"tenant_id"`
	CardID       int            `db:"card_id" json:"card_id"`
	AccountID    *int           `db:"account_id" json:"account_id,omitempty"`
	Type         AssignmentType `db:"assignment_type" json:"assignment_type"`
	Active       bool           `db:"active" json:"active"`
	AssignedAt   time.Time      `db:"assigned_at" json:"assigned_at"`
	AssignedBy   *int           `db:"assigned_by" json:"assigned_by,omitempty"`
	UnassignedAt *time.Time     `db:"unassigned_at" json:"unassigned_at,omitempty"`
}

// Holder is who pays with a card: an account, or the card's own anonymous wallet.
type Holder struct {
	CardID    int
	Type      AssignmentType
	AccountID *int
}

type LookupResult struct {
	Status         LookupStatus     `json:"status"`
	CardID         *int             `json:"card_id,omitempty"`
	OwnerID        *int             `json:"owner_id,omitempty"`
	DisplayName    string           `json:"display_name,omitempty"`
	AssignmentType AssignmentType   `json:"assignment_type,omitempty"`
	Balance        *decimal.Decimal `json:"balance,omitempty" swaggertype:"string"`
}

type BindInput struct {
	TenantID   int
	UID        string
	Account    account.Reference
	AssignedBy int
}

type TopUpInput struct {
	TenantID       int
	CardID         int
	Amount         decimal.Decimal
	IdempotencyKey string
	CreatedBy      int
}

type LookupRequest struct {
	UID string `json:"uid" binding:"required,max=256"`
}

type BindRequest struct {
	UID string `json:"uid" binding:"required,max=256"`
	account.Reference
}

type IssueAnonymousRequest struct {
	UID string `json:"uid" binding:"required,max=256"`
}

type CardResponse struct {
	CardID  int    `json:"card_id"`
	Message string `json:"message"`
}
