package dispense

import (
	"time"

	"becard/internal/loyalty"
	"becard/internal/sale"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMode string

const (
	ModeWallet   PaymentMode = "wallet"
	ModeExternal PaymentMode = "external"
)

func (m PaymentMode) Valid() bool {
	return m == ModeWallet || m == ModeExternal
}

type Status string

const (
	StatusCreated        Status = "created"
	StatusPendingPayment Status = "pending_payment"
	StatusCompleted      Status = "completed"
	StatusExpired        Status = "expired"
)

// DefaultExternalMethod names external payments when the device sends no method.
const DefaultExternalMethod = "external"

// Session is one pour, from authorization to settlement. UnitPrice is the per-litre
// price snapshotted at creation.
type Session struct {
	ID              int                 `db:"id"`
	ExternalID      uuid.UUID           `db:"external_id"`
	TenantID        int                 `db:"tenant_id"`
	EquipmentID     int                 `db:"equipment_id"`
	ProductID       int                 `db:"product_id"`
	AccountID       *int                `db:"account_id"`
	CardHash        *string             `db:"card_hash"`
	UnitPrice       decimal.Decimal     `db:"unit_price"`
	RequestedML     int                 `db:"requested_ml"`
	AuthorizedML    int                 `db:"authorized_ml"`
	PouredML        *int                `db:"poured_ml"`
	EstimatedAmount decimal.Decimal     `db:"estimated_amount"`
	FinalAmount     decimal.NullDecimal `db:"final_amount"`
	PaymentMode     PaymentMode         `db:"payment_mode"`
	Status          Status              `db:"status"`
	IdempotencyKey  *string             `db:"idempotency_key"`
	SaleID          *int                `db:"sale_id"`
	PaymentID       *int                `db:"payment_id"`
	CreatedAt       time.Time           `db:"created_at"`
	CompletedAt     *time.Time          `db:"completed_at"`
}

// CreateInput describes a pour request. The payer is the account, else the holder
// of the card given raw (UID) or pre-hashed (CardHash).
type CreateInput struct {
	TenantID       int
	EquipmentID    int
	RequestedML    int
	PaymentMode    PaymentMode
	AccountID      *int
	UID            string
	CardHash       string
	IdempotencyKey string
}

type CompleteInput struct {
	TenantID    int
	SessionID   uuid.UUID
	PouredML    int
	PaymentMode PaymentMode
	Method      string
	ProviderRef string
	CompletedBy int
}

type ConfirmInput struct {
	TenantID        int
	ProviderRef     string
	Status          sale.PaymentStatus
	RejectionReason *string
}

type ClaimInput struct {
	TenantID  int
	SaleID    uuid.UUID
	AccountID int
}

// Completion is a settled session with the sale it produced, if any.
type Completion struct {
	Session *Session
	Sale    *sale.Sale
}

type ClaimResult struct {
	Sale    *sale.Sale
	Loyalty *loyalty.Transaction
}

type CreateRequest struct {
	EquipmentID    int     `json:"equipment_id" binding:"required,gt=0"`
	UID            *string `json:"uid,omitempty" binding:"omitempty,max=256"`
	UIDHash        *string `json:"uid_hash,omitempty" binding:"omitempty,len=64,hexadecimal"`
	RequestedML    int     `json:"requested_ml" binding:"required,gt=0"`
	PaymentMode    string  `json:"payment_mode,omitempty" binding:"omitempty,oneof=wallet external"`
	IdempotencyKey string  `json:"idempotency_key,omitempty" binding:"omitempty,max=120"`
}

type CreateResponse struct {
	SessionID           uuid.UUID       `json:"session_id"`
	ProductID           int             `json:"product_id"`
	UnitPrice           decimal.Decimal `json:"unit_price" swaggertype:"string"`
	PricePerVolumeUnit  decimal.Decimal `json:"price_per_volume_unit" swaggertype:"string"`
	MaxAuthorizedVolume int             `json:"max_authorized_volume"`
	EstimatedAmount     decimal.Decimal `json:"estimated_amount" swaggertype:"string"`
}

type CompleteRequest struct {
	PouredML    *int   `json:"poured_ml" binding:"required"`
	PaymentMode string `json:"payment_mode,omitempty" binding:"omitempty,oneof=wallet external"`
	Method      string `json:"payment_method,omitempty" binding:"omitempty,max=60"`
	ProviderRef string `json:"provider_transaction_id,omitempty" binding:"omitempty,max=120"`
}

type CompleteResponse struct {
	SessionID    uuid.UUID       `json:"session_id"`
	Status       Status          `json:"status"`
	PouredVolume int             `json:"poured_volume"`
	FinalAmount  decimal.Decimal `json:"final_amount" swaggertype:"string"`
	SaleID       *uuid.UUID      `json:"sale_id,omitempty"`
}

type ConfirmPaymentRequest struct {
	ProviderRef     string  `json:"provider_transaction_id" binding:"required,max=120"`
	Status          string  `json:"status" binding:"required,oneof=approved pending rejected"`
	RejectionReason *string `json:"rejection_reason,omitempty" binding:"omitempty,max=500"`
}

type ConfirmPaymentResponse struct {
	PaymentID int                `json:"payment_id"`
	Status    sale.PaymentStatus `json:"status"`
	Message   string             `json:"message"`
}

type ClaimResponse struct {
	SaleID       uuid.UUID `json:"sale_id"`
	PointsEarned int64     `json:"points_earned"`
	Message      string    `json:"message"`
}

// Response renders the creation view of a session.
func (s *Session) Response() CreateResponse {
	return CreateResponse{
		SessionID:           s.ExternalID,
		ProductID:           s.ProductID,
		UnitPrice:           s.UnitPrice,
		PricePerVolumeUnit:  pricePerML(s.UnitPrice),
		MaxAuthorizedVolume: s.AuthorizedML,
		EstimatedAmount:     s.EstimatedAmount,
	}
}

// CompletionResponse renders the settlement view of a session. saleID may be nil.
func (s *Session) CompletionResponse(saleID *uuid.UUID) CompleteResponse {
	res := CompleteResponse{
		SessionID:   s.ExternalID,
		Status:      s.Status,
		FinalAmount: decimal.Zero,
		SaleID:      saleID,
	}
	if s.PouredML != nil {
		res.PouredVolume = *s.PouredML
	}
	if s.FinalAmount.Valid {
		res.FinalAmount = s.FinalAmount.Decimal
	}
	return res
}
