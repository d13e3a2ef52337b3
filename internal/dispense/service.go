package dispense

import (
	"context"
	"errors"
	"strings"
	"time"

	"becard/internal/account"
	"becard/internal/apperr"
	"becard/internal/card"
	"becard/internal/catalog"
	"becard/internal/db"
	"becard/internal/logger"
	"becard/internal/loyalty"
	"becard/internal/metrics"
	"becard/internal/notify"
	"becard/internal/pricing"
	"becard/internal/sale"
	"becard/internal/wallet"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const maxAttempts = 3

// ReceiptQueue accepts receipts for asynchronous delivery.
type ReceiptQueue interface {
	EnqueueReceipt(ctx context.Context, r notify.Receipt) error
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Session, error)
	// Complete settles a session once. Completing a settled session returns it unchanged.
	Complete(ctx context.Context, in CompleteInput) (*Completion, error)
	ConfirmPayment(ctx context.Context, in ConfirmInput) (*sale.Payment, error)
	Claim(ctx context.Context, in ClaimInput) (*ClaimResult, error)
	ExpireStale(ctx context.Context, ttl time.Duration) (int64, error)
}

type service struct {
	repo     Repository
	sales    sale.Repository
	catalog  catalog.Repository
	pricing  pricing.Service
	cards    card.Service
	accounts account.Service
	wallets  wallet.Service
	loyalty  loyalty.Service
	tx       db.Transactor
	receipts ReceiptQueue
	now      func() time.Time
}

func NewService(
	repo Repository,
	sales sale.Repository,
	catalogRepo catalog.Repository,
	pricingService pricing.Service,
	cards card.Service,
	accounts account.Service,
	wallets wallet.Service,
	loyaltyService loyalty.Service,
	tx db.Transactor,
	receipts ReceiptQueue,
) Service {
	return &service{
		repo:     repo,
		sales:    sales,
		catalog:  catalogRepo,
		pricing:  pricingService,
		cards:    cards,
		accounts: accounts,
		wallets:  wallets,
		loyalty:  loyaltyService,
		tx:       tx,
		receipts: receipts,
		now:      time.Now,
	}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Session, error) {
	if in.RequestedML <= 0 {
		return nil, apperr.Validation("INVALID_VOLUME", "requested volume must be positive")
	}
	if in.PaymentMode == "" {
		in.PaymentMode = ModeWallet
	}
	if !in.PaymentMode.Valid() {
		return nil, apperr.Validation("INVALID_PAYMENT_MODE", "unknown payment mode %q", in.PaymentMode)
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)

	var (
		out     *Session
		created bool
	)
	err := db.Retry(ctx, maxAttempts, func() error {
		created = false
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			repo := s.repo.WithTx(tx)

			if in.IdempotencyKey != "" {
				existing, err := repo.FindIdempotent(ctx, in.TenantID, in.EquipmentID, in.IdempotencyKey)
				if err != nil {
					return err
				}
				if existing != nil {
					out = existing
					return nil
				}
			}

			sess, err := s.authorize(ctx, tx, in)
			if err != nil {
				return err
			}
			if err := repo.Create(ctx, sess); err != nil {
				return err
			}
			out, created = sess, true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if created {
		metrics.RecordSessionCreated(string(out.PaymentMode))
		logger.Info("dispense session created",
			"session_id", out.ExternalID,
			"tenant_id", out.TenantID,
			"equipment_id", out.EquipmentID,
			"payment_mode", out.PaymentMode,
			"requested_ml", out.RequestedML,
			"authorized_ml", out.AuthorizedML,
			"unit_price", out.UnitPrice.StringFixed(2),
		)
	}
	return out, nil
}

// authorize prices the pour and caps it by the payer's balance in wallet mode.
func (s *service) authorize(ctx context.Context, tx *sqlx.Tx, in CreateInput) (*Session, error) {
	eq, err := s.catalog.GetEquipment(ctx, in.TenantID, in.EquipmentID)
	if err != nil {
		return nil, err
	}
	if eq.ProductID == nil {
		return nil, apperr.InvalidState("EQUIPMENT_NOT_CONFIGURED", "equipment %d has no product", eq.ID)
	}

	calc, err := s.pricing.Calculate(ctx, pricing.Query{
		TenantID:      in.TenantID,
		ProductID:     *eq.ProductID,
		EquipmentID:   &eq.ID,
		PointOfSaleID: &eq.PointOfSaleID,
		At:            s.now(),
	})
	if err != nil {
		return nil, err
	}

	sess := &Session{
		TenantID:        in.TenantID,
		EquipmentID:     eq.ID,
		ProductID:       *eq.ProductID,
		UnitPrice:       calc.FinalPrice,
		RequestedML:     in.RequestedML,
		AuthorizedML:    in.RequestedML,
		EstimatedAmount: amountFor(in.RequestedML, calc.FinalPrice),
		PaymentMode:     in.PaymentMode,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		sess.IdempotencyKey = &key
	}

	if err := s.resolvePayer(ctx, tx, in, sess); err != nil {
		return nil, err
	}

	if sess.PaymentMode == ModeWallet {
		ownerType, ownerID, err := s.payerWallet(ctx, tx, sess)
		switch {
		case errors.Is(err, apperr.ErrUserRequired):
			sess.AuthorizedML = 0
		case err != nil:
			return nil, err
		default:
			w, err := s.wallets.GetOrCreate(ctx, tx, sess.TenantID, ownerType, ownerID)
			if err != nil {
				return nil, err
			}
			sess.AuthorizedML = authorizedML(sess.RequestedML, w.Balance, sess.UnitPrice)
		}
	}

	return sess, nil
}

// resolvePayer records who pays. A card bound to an account makes that account the payer.
func (s *service) resolvePayer(ctx context.Context, tx *sqlx.Tx, in CreateInput, sess *Session) error {
	sess.AccountID = in.AccountID

	hash := in.CardHash
	if in.UID != "" {
		hash = s.cards.Hash(in.UID)
	}
	if hash == "" {
		return nil
	}
	sess.CardHash = &hash
	if sess.AccountID != nil {
		return nil
	}

	holder, err := s.cards.ResolveHolder(ctx, tx, in.TenantID, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if holder.AccountID != nil {
		accountID := *holder.AccountID
		sess.AccountID = &accountID
	}
	return nil
}

// payerWallet names the wallet that pays for a wallet-mode session.
func (s *service) payerWallet(ctx context.Context, tx *sqlx.Tx, sess *Session) (wallet.OwnerType, int, error) {
	if sess.AccountID != nil {
		return wallet.OwnerAccount, *sess.AccountID, nil
	}
	if sess.CardHash == nil {
		return "", 0, apperr.UserRequired("session %s has no payer", sess.ExternalID)
	}

	holder, err := s.cards.ResolveHolder(ctx, tx, sess.TenantID, *sess.CardHash)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", 0, apperr.UserRequired("card of session %s is not a wallet card", sess.ExternalID)
	}
	if err != nil {
		return "", 0, err
	}
	if holder.Type != card.AssignmentAnonymous {
		return "", 0, apperr.UserRequired("card of session %s is not a wallet card", sess.ExternalID)
	}
	return wallet.OwnerCard, holder.CardID, nil
}

func (s *service) Complete(ctx context.Context, in CompleteInput) (*Completion, error) {
	if in.PouredML < 0 {
		return nil, apperr.Validation("INVALID_VOLUME", "poured volume must not be negative")
	}

	var (
		out     *Completion
		settled bool
	)
	err := db.Retry(ctx, maxAttempts, func() error {
		settled = false
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			repo := s.repo.WithTx(tx)

			sess, err := repo.LockByExternalID(ctx, in.TenantID, in.SessionID)
			if err != nil {
				return err
			}
			if in.PaymentMode != "" && in.PaymentMode != sess.PaymentMode {
				return apperr.InvalidState("INVALID_PAYMENT_MODE", "session %s is a %s session", sess.ExternalID, sess.PaymentMode)
			}

			switch sess.Status {
			case StatusCompleted, StatusPendingPayment:
				out, err = s.replay(ctx, tx, sess)
				return err
			case StatusExpired:
				return apperr.InvalidState("SESSION_EXPIRED", "session %s has expired", sess.ExternalID)
			}

			// A wallet session needs a payer whatever was poured.
			var ownerType wallet.OwnerType
			var ownerID int
			if sess.PaymentMode == ModeWallet {
				if ownerType, ownerID, err = s.payerWallet(ctx, tx, sess); err != nil {
					return err
				}
			}

			poured := in.PouredML
			if poured > sess.AuthorizedML {
				poured = sess.AuthorizedML
			}
			sess.PouredML = &poured
			sess.FinalAmount = decimal.NewNullDecimal(amountFor(poured, sess.UnitPrice))

			var sl *sale.Sale
			switch {
			case poured == 0:
				sess.Status = StatusCompleted
			case sess.PaymentMode == ModeWallet:
				sl, err = s.settleWallet(ctx, tx, sess, ownerType, ownerID, in.CompletedBy)
			default:
				sl, err = s.settleExternal(ctx, tx, sess, in)
			}
			if err != nil {
				return err
			}

			if err := repo.Settle(ctx, sess); err != nil {
				return err
			}
			out, settled = &Completion{Session: sess, Sale: sl}, true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if settled {
		sess := out.Session
		metrics.RecordSessionCompleted(string(sess.PaymentMode), string(sess.Status), *sess.PouredML)
		logger.Info("dispense session settled",
			"session_id", sess.ExternalID,
			"tenant_id", sess.TenantID,
			"status", sess.Status,
			"poured_ml", *sess.PouredML,
			"amount", sess.FinalAmount.Decimal.StringFixed(2),
		)
		if sess.Status == StatusCompleted && out.Sale != nil {
			s.sendReceipt(ctx, out.Sale, sale.MethodWallet)
		}
	}
	return out, nil
}

func (s *service) replay(ctx context.Context, tx *sqlx.Tx, sess *Session) (*Completion, error) {
	c := &Completion{Session: sess}
	if sess.SaleID != nil {
		sl, err := s.sales.WithTx(tx).GetSale(ctx, sess.TenantID, *sess.SaleID)
		if err != nil {
			return nil, err
		}
		c.Sale = sl
	}
	return c, nil
}

// settleWallet debits the payer and records an approved sale, accruing loyalty for accounts.
func (s *service) settleWallet(ctx context.Context, tx *sqlx.Tx, sess *Session, ownerType wallet.OwnerType, ownerID, completedBy int) (*sale.Sale, error) {
	w, err := s.wallets.GetOrCreate(ctx, tx, sess.TenantID, ownerType, ownerID)
	if err != nil {
		return nil, err
	}

	amount := sess.FinalAmount.Decimal
	if amount.IsPositive() {
		var createdBy *int
		if completedBy > 0 {
			createdBy = &completedBy
		}
		if _, err := s.wallets.Debit(ctx, tx, wallet.Movement{
			WalletID:       w.ID,
			Amount:         amount,
			ReferenceType:  wallet.RefDispenseSession,
			ReferenceID:    sess.ExternalID.String(),
			IdempotencyKey: debitKey(sess),
			CreatedBy:      createdBy,
		}); err != nil {
			return nil, err
		}
	}

	sl, err := s.record(ctx, tx, sess, sale.MethodWallet, sale.PaymentApproved, sess.ExternalID.String())
	if err != nil {
		return nil, err
	}

	if sl.AccountID != nil {
		if _, err := s.loyalty.Accrue(ctx, tx, accrualFor(sl)); err != nil {
			return nil, err
		}
	}

	sess.Status = StatusCompleted
	return sl, nil
}

// settleExternal records a sale whose payment the provider confirms later.
func (s *service) settleExternal(ctx context.Context, tx *sqlx.Tx, sess *Session, in CompleteInput) (*sale.Sale, error) {
	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = DefaultExternalMethod
	}
	ref := strings.TrimSpace(in.ProviderRef)
	if ref == "" {
		ref = sess.ExternalID.String()
	}

	sl, err := s.record(ctx, tx, sess, method, sale.PaymentPending, ref)
	if err != nil {
		return nil, err
	}

	sess.Status = StatusPendingPayment
	return sl, nil
}

func (s *service) record(ctx context.Context, tx *sqlx.Tx, sess *Session, method string, status sale.PaymentStatus, providerRef string) (*sale.Sale, error) {
	sales := s.sales.WithTx(tx)

	sl := &sale.Sale{
		TenantID:    sess.TenantID,
		EquipmentID: sess.EquipmentID,
		ProductID:   sess.ProductID,
		AccountID:   sess.AccountID,
		VolumeML:    *sess.PouredML,
		Amount:      sess.FinalAmount.Decimal,
		Discount:    decimal.Zero,
	}
	if err := sales.CreateSale(ctx, sl); err != nil {
		return nil, err
	}

	p := &sale.Payment{
		TenantID:    sess.TenantID,
		SaleID:      sl.ID,
		Method:      method,
		Amount:      sl.Amount,
		Status:      status,
		ProviderRef: providerRef,
	}
	if err := sales.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	sess.SaleID = &sl.ID
	sess.PaymentID = &p.ID
	return sl, nil
}

func (s *service) ConfirmPayment(ctx context.Context, in ConfirmInput) (*sale.Payment, error) {
	if !in.Status.Valid() {
		return nil, apperr.Validation("INVALID_PAYMENT_STATUS", "unknown payment status %q", in.Status)
	}
	ref := strings.TrimSpace(in.ProviderRef)
	if ref == "" {
		return nil, apperr.Validation("PROVIDER_REF_REQUIRED", "provider transaction id is required")
	}

	var (
		out     *sale.Payment
		paid    *sale.Sale
		accrued *loyalty.Transaction
	)
	err := db.Retry(ctx, maxAttempts, func() error {
		paid, accrued = nil, nil
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			sales := s.sales.WithTx(tx)

			p, err := sales.LockPaymentByProviderRef(ctx, in.TenantID, ref)
			if err != nil {
				return err
			}
			if p.Status == sale.PaymentApproved {
				if in.Status != sale.PaymentApproved {
					return apperr.InvalidState("PAYMENT_ALREADY_APPROVED", "payment %d is already approved", p.ID)
				}
				out = p
				return nil
			}

			p.Status = in.Status
			p.RejectionReason = in.RejectionReason
			if err := sales.UpdatePaymentStatus(ctx, p); err != nil {
				return err
			}
			out = p

			if p.Status != sale.PaymentApproved {
				return nil
			}

			sl, err := sales.GetSale(ctx, in.TenantID, p.SaleID)
			if err != nil {
				return err
			}
			if sl.AccountID != nil {
				if accrued, err = s.loyalty.Accrue(ctx, tx, accrualFor(sl)); err != nil {
					return err
				}
			}
			if _, err := s.repo.WithTx(tx).CompleteBySale(ctx, sl.ID); err != nil {
				return err
			}
			paid = sl
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentConfirmation(string(out.Status))
	logger.Info("payment confirmed",
		"payment_id", out.ID,
		"tenant_id", in.TenantID,
		"status", out.Status,
		"provider_ref", ref,
	)
	// A fresh accrual marks the first approval of an account sale.
	if paid != nil && accrued != nil {
		s.sendReceipt(ctx, paid, out.Method)
	}
	return out, nil
}

func (s *service) Claim(ctx context.Context, in ClaimInput) (*ClaimResult, error) {
	if _, err := s.accounts.GetByID(ctx, in.TenantID, in.AccountID); err != nil {
		return nil, err
	}

	var out *ClaimResult
	err := db.Retry(ctx, maxAttempts, func() error {
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			sales := s.sales.WithTx(tx)

			sl, err := sales.LockSaleByExternalID(ctx, in.TenantID, in.SaleID)
			if err != nil {
				return err
			}
			if sl.AccountID != nil && *sl.AccountID != in.AccountID {
				return apperr.Conflict("SALE_ALREADY_CLAIMED", "sale %s belongs to another account", sl.ExternalID)
			}
			if sl.AccountID == nil {
				if err := sales.SetSaleAccount(ctx, sl.ID, in.AccountID); err != nil {
					return err
				}
				accountID := in.AccountID
				sl.AccountID = &accountID
			}

			res := &ClaimResult{Sale: sl}
			p, err := sales.LatestPayment(ctx, sl.ID)
			if err != nil {
				return err
			}
			if p != nil && p.Status == sale.PaymentApproved {
				if res.Loyalty, err = s.loyalty.Accrue(ctx, tx, accrualFor(sl)); err != nil {
					return err
				}
			}
			out = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("sale claimed", "sale_id", out.Sale.ExternalID, "tenant_id", in.TenantID, "account_id", in.AccountID)
	return out, nil
}

// ExpireStale closes sessions left in created for longer than ttl.
func (s *service) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := s.repo.ExpireStale(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.RecordSessionsExpired(n)
		logger.Info("stale dispense sessions expired", "count", n, "ttl", ttl.String())
	}
	return n, nil
}

func (s *service) sendReceipt(ctx context.Context, sl *sale.Sale, method string) {
	if s.receipts == nil || sl.AccountID == nil {
		return
	}

	acc, err := s.accounts.GetByID(ctx, sl.TenantID, *sl.AccountID)
	if err != nil {
		logger.Warn("receipt skipped", "sale_id", sl.ExternalID, "error", err)
		return
	}
	if acc.Email == "" {
		return
	}

	if err := s.receipts.EnqueueReceipt(ctx, notify.Receipt{
		To:       acc.Email,
		Name:     acc.Name,
		SaleID:   sl.ExternalID.String(),
		VolumeML: sl.VolumeML,
		Amount:   sl.Amount.StringFixed(2),
		Method:   method,
		SoldAt:   sl.SoldAt,
	}); err != nil {
		logger.Warn("receipt not queued", "sale_id", sl.ExternalID, "error", err)
	}
}

func debitKey(sess *Session) string {
	return wallet.RefDispenseSession + ":" + sess.ExternalID.String()
}

func accrualFor(sl *sale.Sale) loyalty.Accrual {
	return loyalty.Accrual{
		TenantID:    sl.TenantID,
		AccountID:   *sl.AccountID,
		SaleID:      sl.ID,
		Amount:      sl.Amount,
		Description: "sale " + sl.ExternalID.String(),
		At:          sl.SoldAt,
	}
}
