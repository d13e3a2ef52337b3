package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

type OwnerType string

const (
	OwnerAccount OwnerType = "account"
	OwnerCard    OwnerType = "card"
)

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

const (
	RefTopUp           = "topup"
	RefDispenseSession = "dispense_session"
)

// Wallet is a stored-value balance owned by an account or an anonymous card.
type Wallet struct {
	ID        int             `db:"id" json:"id"`
	TenantID  int             `db:"tenant_id" json:"tenant_id"`
	OwnerType OwnerType       `db:"owner_type" json:"owner_type"`
	OwnerID   int             `db:"owner_id" json:"owner_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is an immutable ledger entry. Amount is always positive; Direction gives the sign.
type Transaction struct {
	ID             int             `db:"id" json:"id"`
	WalletID       int             `db:"wallet_id" json:"wallet_id"`
	Direction      Direction       `db:"direction" json:"direction"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore  decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter   decimal.Decimal `db:"balance_after" json:"balance_after"`
	ReferenceType  *string         `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID    *string         `db:"reference_id" json:"reference_id,omitempty"`
	IdempotencyKey *string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedBy      *int            `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Movement is a credit or debit request against one wallet.
type Movement struct {
	WalletID       int
	Amount         decimal.Decimal
	ReferenceType  string
	ReferenceID    string
	IdempotencyKey string
	CreatedBy      *int
}

type TopUpInput struct {
	TenantID       int
	OwnerType      OwnerType
	OwnerID        int
	Amount         decimal.Decimal
	IdempotencyKey string
	CreatedBy      *int
}

type TopUpRequest struct {
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"1000.00"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" binding:"omitempty,max=120"`
}

type TopUpResponse struct {
	Wallet      *Wallet      `json:"wallet"`
	Transaction *Transaction `json:"transaction"`
}
