package pricing

import (
	"context"
	"time"

	"becard/internal/catalog"
)

type Service interface {
	Calculate(ctx context.Context, q Query) (*Calculation, error)
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	now         func() time.Time
}

func NewService(repo Repository, catalogRepo catalog.Repository) Service {
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		now:         time.Now,
	}
}

// Calculate resolves the effective unit price of a product in the given context.
// A zero q.At means now.
func (s *service) Calculate(ctx context.Context, q Query) (*Calculation, error) {
	if q.At.IsZero() {
		q.At = s.now()
	}

	base, err := s.catalogRepo.CurrentBasePrice(ctx, q.TenantID, q.ProductID)
	if err != nil {
		return nil, err
	}

	rules, err := s.repo.ActiveRules(ctx, q.TenantID, q.At)
	if err != nil {
		return nil, err
	}

	return Resolve(base, rules, q), nil
}
