package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentApproved PaymentStatus = "approved"
	PaymentPending  PaymentStatus = "pending"
	PaymentRejected PaymentStatus = "rejected"
)

// MethodWallet names payments settled from stored value.
const MethodWallet = "wallet"

type Sale struct {
	ID          int             `db:"id" json:"-"`
	ExternalID  uuid.UUID       `db:"external_id" json:"sale_id"`
	TenantID    int             `db:"tenant_id" json:"tenant_id"`
	EquipmentID int             `db:"equipment_id" json:"equipment_id"`
	ProductID   int             `db:"product_id" json:"product_id"`
	AccountID   *int            `db:"account_id" json:"account_id,omitempty"`
	VolumeML    int             `db:"volume_ml" json:"volume_ml"`
	Amount      decimal.Decimal `db:"amount" json:"amount" swaggertype:"string"`
	Discount    decimal.Decimal `db:"discount" json:"discount" swaggertype:"string"`
	SoldAt      time.Time       `db:"sold_at" json:"sold_at"`
}

type Payment struct {
	ID              int             `db:"id" json:"id"`
	TenantID        int             `db:"tenant_id" json:"tenant_id"`
	SaleID          int             `db:"sale_id" json:"sale_id"`
	Method          string          `db:"method" json:"method"`
	Amount          decimal.Decimal `db:"amount" json:"amount" swaggertype:"string"`
	Status          PaymentStatus   `db:"status" json:"status"`
	ProviderRef     string          `db:"provider_ref" json:"provider_ref"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Valid reports whether s is a status a provider can report.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentApproved, PaymentPending, PaymentRejected:
		return true
	}
	return false
}
