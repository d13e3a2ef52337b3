package dispense

import (
	"context"
	"time"

	"becard/internal/account"
	"becard/internal/card"
	"becard/internal/catalog"
	"becard/internal/loyalty"
	"becard/internal/notify"
	"becard/internal/pricing"
	"becard/internal/sale"
	"becard/internal/wallet"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindIdempotent(ctx context.Context, tenantID, equipmentID int, key string) (*Session, error) {
	args := m.Called(ctx, tenantID, equipmentID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, s *Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) LockByExternalID(ctx context.Context, tenantID int, id uuid.UUID) (*Session, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) Settle(ctx context.Context, s *Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) CompleteBySale(ctx context.Context, saleID int) (int64, error) {
	args := m.Called(ctx, saleID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) WithTx(tx *sqlx.Tx) Repository {
	return m
}

type MockSales struct {
	mock.Mock
}

func (m *MockSales) CreateSale(ctx context.Context, s *sale.Sale) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSales) CreatePayment(ctx context.Context, p *sale.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockSales) LockSaleByExternalID(ctx context.Context, tenantID int, externalID uuid.UUID) (*sale.Sale, error) {
	args := m.Called(ctx, tenantID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

func (m *MockSales) GetSale(ctx context.Context, tenantID, id int) (*sale.Sale, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

func (m *MockSales) SetSaleAccount(ctx context.Context, saleID, accountID int) error {
	return m.Called(ctx, saleID, accountID).Error(0)
}

func (m *MockSales) LockPaymentByProviderRef(ctx context.Context, tenantID int, providerRef string) (*sale.Payment, error) {
	args := m.Called(ctx, tenantID, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Payment), args.Error(1)
}

func (m *MockSales) UpdatePaymentStatus(ctx context.Context, p *sale.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockSales) LatestPayment(ctx context.Context, saleID int) (*sale.Payment, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Payment), args.Error(1)
}

func (m *MockSales) WithTx(tx *sqlx.Tx) sale.Repository {
	return m
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetEquipment(ctx context.Context, tenantID, equipmentID int) (*catalog.Equipment, error) {
	args := m.Called(ctx, tenantID, equipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Equipment), args.Error(1)
}

func (m *MockCatalog) CurrentBasePrice(ctx context.Context, tenantID, productID int) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, productID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCatalog) WithTx(tx *sqlx.Tx) catalog.Repository {
	return m
}

type MockPricing struct {
	mock.Mock
}

func (m *MockPricing) Calculate(ctx context.Context, q pricing.Query) (*pricing.Calculation, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Calculation), args.Error(1)
}

type MockCards struct {
	mock.Mock
}

func (m *MockCards) Hash(uid string) string {
	return m.Called(uid).String(0)
}

func (m *MockCards) Lookup(ctx context.Context, tenantID int, uid string) (*card.LookupResult, error) {
	args := m.Called(ctx, tenantID, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.LookupResult), args.Error(1)
}

func (m *MockCards) Bind(ctx context.Context, in card.BindInput) (*card.Card, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.Card), args.Error(1)
}

func (m *MockCards) IssueAnonymous(ctx context.Context, tenantID int, uid string, assignedBy int) (*card.Card, error) {
	args := m.Called(ctx, tenantID, uid, assignedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.Card), args.Error(1)
}

func (m *MockCards) TopUp(ctx context.Context, in card.TopUpInput) (*wallet.Wallet, *wallet.Transaction, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*wallet.Wallet), args.Get(1).(*wallet.Transaction), args.Error(2)
}

func (m *MockCards) ResolveHolder(ctx context.Context, tx *sqlx.Tx, tenantID int, uidHash string) (*card.Holder, error) {
	args := m.Called(ctx, tx, tenantID, uidHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.Holder), args.Error(1)
}

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) GetByID(ctx context.Context, tenantID, id int) (*account.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccounts) Resolve(ctx context.Context, tenantID int, ref account.Reference) (*account.Account, error) {
	args := m.Called(ctx, tenantID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockWallets struct {
	mock.Mock
}

func (m *MockWallets) GetOrCreate(ctx context.Context, tx *sqlx.Tx, tenantID int, ownerType wallet.OwnerType, ownerID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, tx, tenantID, ownerType, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWallets) Credit(ctx context.Context, tx *sqlx.Tx, mv wallet.Movement) (*wallet.Transaction, error) {
	args := m.Called(ctx, tx, mv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWallets) Debit(ctx context.Context, tx *sqlx.Tx, mv wallet.Movement) (*wallet.Transaction, error) {
	args := m.Called(ctx, tx, mv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWallets) TopUp(ctx context.Context, in wallet.TopUpInput) (*wallet.Wallet, *wallet.Transaction, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*wallet.Wallet), args.Get(1).(*wallet.Transaction), args.Error(2)
}

func (m *MockWallets) Transactions(ctx context.Context, tenantID int, ownerType wallet.OwnerType, ownerID int, limit, offset int) ([]wallet.Transaction, error) {
	args := m.Called(ctx, tenantID, ownerType, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

type MockLoyalty struct {
	mock.Mock
}

func (m *MockLoyalty) Accrue(ctx context.Context, tx *sqlx.Tx, in loyalty.Accrual) (*loyalty.Transaction, error) {
	args := m.Called(ctx, tx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loyalty.Transaction), args.Error(1)
}

func (m *MockLoyalty) Balance(ctx context.Context, tenantID, accountID int) (*loyalty.Balance, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loyalty.Balance), args.Error(1)
}

type MockReceipts struct {
	mock.Mock
}

func (m *MockReceipts) EnqueueReceipt(ctx context.Context, r notify.Receipt) error {
	return m.Called(ctx, r).Error(0)
}

type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	f.calls++
	return fn(nil)
}
