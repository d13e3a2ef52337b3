package loyalty

import (
	"context"
	"time"

	"becard/internal/logger"
	"becard/internal/metrics"

	"github.com/jmoiron/sqlx"
)

type Service interface {
	// Accrue records the points earned by a sale exactly once. It returns nil when the
	// sale already has an accrual. tx is the caller's unit of work and may be nil.
	Accrue(ctx context.Context, tx *sqlx.Tx, in Accrual) (*Transaction, error)
	Balance(ctx context.Context, tenantID, accountID int) (*Balance, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Accrue(ctx context.Context, tx *sqlx.Tx, in Accrual) (*Transaction, error) {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	done, err := repo.HasSaleAccrual(ctx, in.SaleID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, nil
	}

	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	rules, err := repo.ActiveRules(ctx, in.TenantID, at)
	if err != nil {
		return nil, err
	}
	points, _ := CalculatePoints(in.Amount, rules)

	bal, err := repo.LockBalance(ctx, in.TenantID, in.AccountID)
	if err != nil {
		return nil, err
	}

	after := bal.Points + points
	if after < 0 {
		after = 0
	}
	if err := repo.SetBalance(ctx, in.TenantID, in.AccountID, after); err != nil {
		return nil, err
	}

	saleID := in.SaleID
	t := &Transaction{
		TenantID:      in.TenantID,
		AccountID:     in.AccountID,
		SaleID:        &saleID,
		Kind:          KindSale,
		PointsEarned:  points,
		BalanceBefore: bal.Points,
		BalanceAfter:  after,
		Description:   in.Description,
	}
	if err := repo.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	metrics.RecordLoyaltyPoints(points)
	logger.Debug("loyalty accrued",
		"tenant_id", in.TenantID,
		"account_id", in.AccountID,
		"sale_id", in.SaleID,
		"points", points,
	)
	return t, nil
}

func (s *service) Balance(ctx context.Context, tenantID, accountID int) (*Balance, error) {
	return s.repo.GetBalance(ctx, tenantID, accountID)
}
