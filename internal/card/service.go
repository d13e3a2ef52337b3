package card

import (
	"context"
	"errors"

	"becard/internal/account"
	"becard/internal/apperr"
	"becard/internal/db"
	"becard/internal/logger"
	"becard/internal/wallet"

	"github.com/jmoiron/sqlx"
)

const maxAttempts = 3

type Service interface {
	Hash(uid string) string
	Lookup(ctx context.Context, tenantID int, uid string) (*LookupResult, error)
	Bind(ctx context.Context, in BindInput) (*Card, error)
	IssueAnonymous(ctx context.Context, tenantID int, uid string, assignedBy int) (*Card, error)
	TopUp(ctx context.Context, in TopUpInput) (*wallet.Wallet, *wallet.Transaction, error)
	// ResolveHolder returns the active holder of a card hash within the tenant.
	// A card that is unknown, foreign or unassigned is NotFound.
	ResolveHolder(ctx context.Context, tx *sqlx.Tx, tenantID int, uidHash string) (*Holder, error)
}

type service struct {
	repo     Repository
	accounts account.Service
	wallets  wallet.Service
	tx       db.Transactor
	hasher   *Hasher
}

func NewService(repo Repository, accounts account.Service, wallets wallet.Service, tx db.Transactor, hasher *Hasher) Service {
	return &service{
		repo:     repo,
		accounts: accounts,
		wallets:  wallets,
		tx:       tx,
		hasher:   hasher,
	}
}

func (s *service) Hash(uid string) string {
	return s.hasher.Hash(uid)
}

// Lookup reports who holds the card and the balance that would pay for a pour.
// Cards of other tenants are reported as unknown.
func (s *service) Lookup(ctx context.Context, tenantID int, uid string) (*LookupResult, error) {
	c, err := s.repo.FindByHash(ctx, s.hasher.Hash(uid))
	if errors.Is(err, apperr.ErrNotFound) {
		return &LookupResult{Status: StatusUnknown}, nil
	}
	if err != nil {
		return nil, err
	}
	if c.TenantID != tenantID {
		return &LookupResult{Status: StatusUnknown}, nil
	}

	result := &LookupResult{Status: StatusUnknown, CardID: &c.ID}

	a, err := s.repo.ActiveAssignment(ctx, c.ID)
	if err != nil || a == nil {
		return result, err
	}

	switch {
	case a.AccountID != nil:
		acc, err := s.accounts.GetByID(ctx, tenantID, *a.AccountID)
		if errors.Is(err, apperr.ErrNotFound) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		w, err := s.wallets.GetOrCreate(ctx, nil, tenantID, wallet.OwnerAccount, acc.ID)
		if err != nil {
			return nil, err
		}
		result.Status = StatusAssignedUser
		result.OwnerID = &acc.ID
		result.DisplayName = acc.Name
		result.AssignmentType = a.Type
		result.Balance = &w.Balance

	case a.Type == AssignmentAnonymous:
		w, err := s.wallets.GetOrCreate(ctx, nil, tenantID, wallet.OwnerCard, c.ID)
		if err != nil {
			return nil, err
		}
		result.Status = StatusAnonymousWallet
		result.AssignmentType = a.Type
		result.Balance = &w.Balance
	}

	return result, nil
}

// Bind assigns the card to a named account, replacing any anonymous assignment.
func (s *service) Bind(ctx context.Context, in BindInput) (*Card, error) {
	acc, err := s.accounts.Resolve(ctx, in.TenantID, in.Account)
	if err != nil {
		return nil, err
	}
	hash := s.hasher.Hash(in.UID)

	var out *Card
	err = db.Retry(ctx, maxAttempts, func() error {
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			repo := s.repo.WithTx(tx)

			c, err := s.findOrCreate(ctx, repo, in.TenantID, hash)
			if err != nil {
				return err
			}

			current, err := repo.LockActiveAssignment(ctx, c.ID)
			if err != nil {
				return err
			}
			if current != nil {
				if current.AccountID != nil && *current.AccountID != acc.ID {
					return apperr.Conflict("ALREADY_ASSIGNED", "card is already assigned to another account")
				}
				if err := repo.DeactivateAssignment(ctx, current.ID); err != nil {
					return err
				}
			}

			accountID, assignedBy := acc.ID, in.AssignedBy
			if err := repo.InsertAssignment(ctx, &Assignment{
				TenantID:   in.TenantID,
				CardID:     c.ID,
				AccountID:  &accountID,
				Type:       AssignmentAccount,
				AssignedBy: &assignedBy,
			}); err != nil {
				return err
			}

			out = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("card bound", "tenant_id", in.TenantID, "card_id", out.ID, "account_id", acc.ID, "assigned_by", in.AssignedBy)
	return out, nil
}

// IssueAnonymous turns an unassigned card into a prepaid card with its own wallet.
// Issuing an already anonymous card is a no-op.
func (s *service) IssueAnonymous(ctx context.Context, tenantID int, uid string, assignedBy int) (*Card, error) {
	hash := s.hasher.Hash(uid)

	var out *Card
	err := db.Retry(ctx, maxAttempts, func() error {
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			repo := s.repo.WithTx(tx)

			c, err := s.findOrCreate(ctx, repo, tenantID, hash)
			if err != nil {
				return err
			}

			current, err := repo.LockActiveAssignment(ctx, c.ID)
			if err != nil {
				return err
			}
			if current != nil {
				if current.AccountID != nil {
					return apperr.Conflict("ALREADY_ASSIGNED", "card is assigned to a registered account")
				}
				if current.Type == AssignmentAnonymous {
					out = c
					return nil
				}
				if err := repo.DeactivateAssignment(ctx, current.ID); err != nil {
					return err
				}
			}

			if err := repo.InsertAssignment(ctx, &Assignment{
				TenantID:   tenantID,
				CardID:     c.ID,
				Type:       AssignmentAnonymous,
				AssignedBy: &assignedBy,
			}); err != nil {
				return err
			}

			out = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("anonymous card issued", "tenant_id", tenantID, "card_id", out.ID, "assigned_by", assignedBy)
	return out, nil
}

func (s *service) findOrCreate(ctx context.Context, repo Repository, tenantID int, hash string) (*Card, error) {
	c, err := repo.FindByHash(ctx, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return repo.Create(ctx, tenantID, hash)
	}
	if err != nil {
		return nil, err
	}
	if c.TenantID != tenantID {
		return nil, apperr.Conflict("WRONG_TENANT", "card belongs to another tenant")
	}
	return c, nil
}

// TopUp credits the wallet of an anonymous card.
func (s *service) TopUp(ctx context.Context, in TopUpInput) (*wallet.Wallet, *wallet.Transaction, error) {
	c, err := s.repo.GetByID(ctx, in.TenantID, in.CardID)
	if err != nil {
		return nil, nil, err
	}

	a, err := s.repo.ActiveAssignment(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	if a == nil || a.Type != AssignmentAnonymous {
		return nil, nil, apperr.InvalidState("CARD_NOT_ANONYMOUS", "card %d is not an anonymous wallet card", c.ID)
	}

	createdBy := in.CreatedBy
	return s.wallets.TopUp(ctx, wallet.TopUpInput{
		TenantID:       in.TenantID,
		OwnerType:      wallet.OwnerCard,
		OwnerID:        c.ID,
		Amount:         in.Amount,
		IdempotencyKey: in.IdempotencyKey,
		CreatedBy:      &createdBy,
	})
}

func (s *service) ResolveHolder(ctx context.Context, tx *sqlx.Tx, tenantID int, uidHash string) (*Holder, error) {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	c, err := repo.FindByHash(ctx, uidHash)
	if err != nil {
		return nil, err
	}
	if c.TenantID != tenantID {
		return nil, apperr.NotFound("CARD_NOT_FOUND", "card not found")
	}

	a, err := repo.ActiveAssignment(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("CARD_NOT_ASSIGNED", "card %d has no active assignment", c.ID)
	}

	return &Holder{CardID: c.ID, Type: a.Type, AccountID: a.AccountID}, nil
}
