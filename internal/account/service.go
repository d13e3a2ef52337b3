package account

import (
	"context"
	"strings"

	"becard/internal/apperr"
)

type Service interface {
	GetByID(ctx context.Context, tenantID, id int) (*Account, error)
	Resolve(ctx context.Context, tenantID int, ref Reference) (*Account, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, tenantID, id int) (*Account, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// Resolve finds an active account of the tenant by external id, falling back to customer code.
func (s *service) Resolve(ctx context.Context, tenantID int, ref Reference) (*Account, error) {
	if ref.ExternalID != nil {
		return s.repo.FindByExternalID(ctx, tenantID, *ref.ExternalID)
	}
	if ref.CustomerCode != nil {
		if code := strings.TrimSpace(*ref.CustomerCode); code != "" {
			return s.repo.FindByCustomerCode(ctx, tenantID, code)
		}
	}
	return nil, apperr.Validation("USER_IDENTIFIER_REQUIRED", "account external id or customer code is required")
}
