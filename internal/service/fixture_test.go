package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/credit-engine/internal/cache"
	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/logger"
	"github.com/segyhp/credit-engine/internal/metrics"
	"github.com/segyhp/credit-engine/internal/repository/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Database:  config.DatabaseConfig{Driver: config.DriverMemory},
		Scheduler: config.SchedulerConfig{OverdueCron: "0 5 0 * * *", Timezone: "UTC"},
		Business: config.BusinessConfig{
			MinPurchaseAmount: "100.00",
			MaxInstallments:   60,
			TxMaxRetries:      3,
			IdempotencyTTL:    "24h",
			PendingTTL:        "30s",
			StatusCacheTTL:    "10m",
		},
	}
}

type fixture struct {
	store     *memory.Store
	repos     Repositories
	accounts  *AccountService
	purchases *PurchaseService
	payments  *PaymentService
	customers *CustomerService
	metrics   *metrics.Metrics

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T, now time.Time, idem IdempotencyStore) *fixture {
	t.Helper()

	f := &fixture{store: memory.NewStore(), now: now, metrics: metrics.New()}
	f.repos = Repositories{
		Tx:           f.store.TxManager(),
		Customers:    f.store.Customers(),
		Products:     f.store.Products(),
		Purchases:    f.store.Purchases(),
		Installments: f.store.Installments(),
		Payments:     f.store.Payments(),
		Statuses:     f.store.AccountStatuses(),
	}

	cfg := testConfig()
	log := logger.Discard()
	opts := []Option{WithClock(f.clock), WithMetrics(f.metrics)}

	f.accounts = NewAccountService(f.repos, nil, cfg, log, opts...)
	f.purchases = NewPurchaseService(f.repos, f.accounts, cfg, log, opts...)
	f.payments = NewPaymentService(f.repos, f.accounts, idem, cfg, log, opts...)
	f.customers = NewCustomerService(f.repos, f.accounts, cfg, log, opts...)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setNow(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func (f *fixture) addCustomer(limit string, maxInstallments, payDay, tolerance int) *domain.Customer {
	c := &domain.Customer{
		ID:                       uuid.New(),
		Name:                     "Valeria",
		Email:                    "valeria@example.com",
		CreditLimit:              decimal.RequireFromString(limit),
		AvailableCredit:          decimal.RequireFromString(limit),
		MaxInstallments:          maxInstallments,
		DelinquencyToleranceDays: tolerance,
		PayDay:                   payDay,
		Active:                   true,
	}
	f.store.AddCustomer(c)
	return c
}

func (f *fixture) addProduct(price string, stock int) *domain.Product {
	p := &domain.Product{
		ID:     uuid.New(),
		Code:   "SKU-" + uuid.NewString()[:6],
		Name:   "Denim jacket",
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
	f.store.AddProduct(p)
	return p
}

func (f *fixture) customer(t *testing.T, id uuid.UUID) *domain.Customer {
	t.Helper()
	c, err := f.repos.Customers.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (f *fixture) buy(t *testing.T, customerID uuid.UUID, installments int, products ...*domain.Product) *domain.Purchase {
	t.Helper()
	p, err := f.purchases.CreatePurchase(context.Background(), purchaseRequest(customerID, installments, products...))
	require.NoError(t, err)
	return p
}

func (f *fixture) pay(t *testing.T, customerID uuid.UUID, amount string) *domain.Payment {
	t.Helper()
	p, err := f.payments.ApplyPayment(context.Background(), &domain.ApplyPaymentRequest{
		CustomerID: customerID,
		Amount:     decimal.RequireFromString(amount),
		Method:     domain.PaymentMethodCash,
	})
	require.NoError(t, err)
	return p
}

// assertConservation checks that the credit held back equals the total of
// ACTIVE purchases and covers what is still owed.
func (f *fixture) assertConservation(t *testing.T, customerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	c := f.customer(t, customerID)
	purchases, err := f.repos.Purchases.ListByCustomer(ctx, customerID)
	require.NoError(t, err)
	installments, err := f.repos.Installments.ListByCustomer(ctx, customerID)
	require.NoError(t, err)

	active := decimal.Zero
	for _, p := range purchases {
		if p.Status == domain.PurchaseStatusActive {
			active = active.Add(p.TotalAmount)
		}
	}
	debt := decimal.Zero
	for _, i := range installments {
		debt = debt.Add(i.OutstandingBalance)
	}

	held := c.CreditLimit.Sub(c.AvailableCredit)
	require.Truef(t, held.Equal(active), "held %s, active purchases %s", held, active)
	require.Truef(t, held.GreaterThanOrEqual(debt), "held %s below debt %s", held, debt)
	require.False(t, c.AvailableCredit.IsNegative())
}

func purchaseRequest(customerID uuid.UUID, installments int, products ...*domain.Product) *domain.CreatePurchaseRequest {
	req := &domain.CreatePurchaseRequest{CustomerID: customerID, InstallmentCount: installments}
	for _, p := range products {
		req.Items = append(req.Items, domain.LineItemRequest{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price})
	}
	return req
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeIdempotency is an in-process IdempotencyStore.
type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]string)}
}

func (f *fakeIdempotency) Claim(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.keys[key]
	if !ok {
		f.keys[key] = ""
		return "", true, nil
	}
	if v == "" {
		return "", false, cache.ErrInFlight
	}
	return v, false, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = paymentID
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}
