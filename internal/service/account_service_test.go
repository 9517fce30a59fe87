package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/logger"
	customError "github.com/segyhp/credit-engine/pkg/errors"
)

func TestDeriveAccountStatus(t *testing.T) {
	today := date(2024, time.March, 10)
	customer := &domain.Customer{ID: uuid.New(), DelinquencyToleranceDays: 30}

	inst := func(due time.Time, balance string, status string) *domain.Installment {
		b := decimal.RequireFromString(balance)
		return &domain.Installment{ID: uuid.New(), DueDate: due, OutstandingBalance: b, ScheduledAmount: b, Status: status}
	}

	tests := []struct {
		name           string
		installments   []*domain.Installment
		classification string
		debt           string
		overdueCount   int
		maxDays        int
	}{
		{
			name:           "no history",
			classification: domain.ClassificationCompliant,
			debt:           "0",
		},
		{
			name: "only future installments",
			installments: []*domain.Installment{
				inst(date(2024, time.March, 15), "100", domain.InstallmentStatusPending),
				inst(date(2024, time.April, 15), "100", domain.InstallmentStatusPending),
			},
			classification: domain.ClassificationCompliant,
			debt:           "200",
		},
		{
			name: "overdue within tolerance",
			installments: []*domain.Installment{
				inst(date(2024, time.February, 15), "50.25", domain.InstallmentStatusOverdue),
				inst(date(2024, time.March, 15), "100", domain.InstallmentStatusPending),
			},
			classification: domain.ClassificationAtRisk,
			debt:           "150.25",
			overdueCount:   1,
			maxDays:        24,
		},
		{
			name: "exactly at tolerance is still at risk",
			installments: []*domain.Installment{
				inst(date(2024, time.February, 9), "10", domain.InstallmentStatusPending),
			},
			classification: domain.ClassificationAtRisk,
			debt:           "10",
			overdueCount:   1,
			maxDays:        30,
		},
		{
			name: "beyond tolerance",
			installments: []*domain.Installment{
				inst(date(2024, time.January, 15), "100", domain.InstallmentStatusOverdue),
				inst(date(2024, time.February, 15), "100", domain.InstallmentStatusOverdue),
			},
			classification: domain.ClassificationDelinquent,
			debt:           "200",
			overdueCount:   2,
			maxDays:        55,
		},
		{
			name: "settled installments are ignored",
			installments: []*domain.Installment{
				inst(date(2023, time.December, 15), "0", domain.InstallmentStatusPaid),
			},
			classification: domain.ClassificationCompliant,
			debt:           "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := DeriveAccountStatus(customer, tt.installments, nil, today)

			assert.Equal(t, customer.ID, status.CustomerID)
			assert.Equal(t, tt.classification, status.Classification)
			assert.True(t, status.TotalDebt.Equal(decimal.RequireFromString(tt.debt)), "debt %s", status.TotalDebt)
			assert.Equal(t, tt.overdueCount, status.OverdueCount)
			assert.Equal(t, tt.maxDays, status.MaxDaysOverdue)
		})
	}
}

func TestSweepOverdue_ClassificationAdvances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2023, time.November, 20), nil)
	customer := f.addCustomer("5000", 12, 1, 30)

	// due 2023-12-01, 2024-01-01, 2024-02-01
	f.buy(t, customer.ID, 3, f.addProduct("300.00", 5))

	bystander := f.addCustomer("5000", 12, 1, 30)
	f.buy(t, bystander.ID, 1, f.addProduct("120.00", 5))
	f.pay(t, bystander.ID, "120.00")

	f.setNow(date(2023, time.December, 20))
	result, err := f.accounts.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Marked: 1, Recalculated: 1}, result)

	status, err := f.accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationAtRisk, status.Classification)
	assert.Equal(t, 19, status.MaxDaysOverdue)

	f.setNow(date(2024, time.January, 5))
	result, err = f.accounts.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Marked)

	status, err = f.accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationDelinquent, status.Classification)
	assert.Equal(t, 2, status.OverdueCount)
	assert.Equal(t, 35, status.MaxDaysOverdue)

	delinquent, err := f.accounts.ListByClassification(ctx, "delinquent")
	require.NoError(t, err)
	require.Len(t, delinquent, 1)
	assert.Equal(t, customer.ID, delinquent[0].CustomerID)

	// paying the oldest installment leaves only the four-day-old one
	f.pay(t, customer.ID, "100.00")
	status, err = f.accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationAtRisk, status.Classification)
	assert.Equal(t, 4, status.MaxDaysOverdue)

	// nothing new falls due; the sweep still refreshes days overdue
	f.setNow(date(2024, time.January, 10))
	result, err = f.accounts.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Marked: 0, Recalculated: 1}, result)

	status, err = f.accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, status.MaxDaysOverdue)
}

func TestListByClassification_Invalid(t *testing.T) {
	f := newFixture(t, date(2024, time.January, 10), nil)

	_, err := f.accounts.ListByClassification(context.Background(), "GOLD")
	require.Error(t, err)
	assert.Equal(t, customError.ErrCodeInvalidClassification, customError.CodeOf(err))
	assert.True(t, customError.IsRuleViolation(err))
}

func TestRecalculate_UnknownCustomer(t *testing.T) {
	f := newFixture(t, date(2024, time.January, 10), nil)

	_, err := f.accounts.Recalculate(context.Background(), uuid.New())
	assert.Equal(t, customError.ErrCodeCustomerNotFound, customError.CodeOf(err))

	_, err = f.accounts.GetAccountStatus(context.Background(), uuid.New())
	assert.True(t, customError.IsNotFound(err))
}

type fakeStatusCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]*domain.AccountStatus
	generations map[uuid.UUID]int64
	getErr      error
	sets        int
	invalids    int

	// beforeSet runs ahead of every Set, outside the lock
	beforeSet func()
}

func newFakeStatusCache() *fakeStatusCache {
	return &fakeStatusCache{
		entries:     make(map[uuid.UUID]*domain.AccountStatus),
		generations: make(map[uuid.UUID]int64),
	}
}

func (c *fakeStatusCache) Get(_ context.Context, id uuid.UUID) (*domain.AccountStatus, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, c.getErr
	}
	return c.entries[id], c.generations[id], nil
}

func (c *fakeStatusCache) Set(_ context.Context, status *domain.AccountStatus, generation int64) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[status.CustomerID] != generation {
		return nil
	}
	c.sets++
	c.entries[status.CustomerID] = status
	return nil
}

func (c *fakeStatusCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalids++
	c.generations[id]++
	delete(c.entries, id)
	return nil
}

func TestGetAccountStatus_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, time.January, 10), nil)
	customer := f.addCustomer("1000", 12, 15, 30)

	statusCache := newFakeStatusCache()
	accounts := NewAccountService(f.repos, statusCache, testConfig(), logger.Discard(), WithClock(f.clock))

	// never recalculated: derived on the fly
	status, err := accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationCompliant, status.Classification)
	assert.Equal(t, 1, statusCache.sets)

	_, err = f.repos.Statuses.Get(ctx, customer.ID)
	assert.Error(t, err, "reading must not persist a status")

	f.buy(t, customer.ID, 2, f.addProduct("200.00", 5))

	cached, err := accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, cached.TotalDebt.IsZero(), "served from cache")

	_, err = accounts.Recalculate(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, statusCache.invalids)

	fresh, err := accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, fresh.TotalDebt.Equal(decimal.NewFromInt(200)))

	statusCache.getErr = errors.New("redis: i/o timeout")
	degraded, err := accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, degraded.TotalDebt.Equal(decimal.NewFromInt(200)))
}

func TestGetAccountStatus_FillRacingInvalidationIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2024, time.January, 10), nil)
	customer := f.addCustomer("1000", 12, 15, 30)

	statusCache := newFakeStatusCache()
	accounts := NewAccountService(f.repos, statusCache, testConfig(), logger.Discard(), WithClock(f.clock))
	_, err := accounts.Recalculate(ctx, customer.ID)
	require.NoError(t, err)

	// a purchase commits and invalidates after the reader loaded the old row
	product := f.addProduct("300.00", 5)
	statusCache.beforeSet = func() {
		statusCache.beforeSet = nil
		f.buy(t, customer.ID, 3, product)
		_, err := accounts.Recalculate(ctx, customer.ID)
		require.NoError(t, err)
	}

	stale, err := accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, stale.TotalDebt.IsZero())
	assert.Equal(t, 0, statusCache.sets, "stale fill must not land")

	fresh, err := accounts.GetAccountStatus(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, fresh.TotalDebt.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 1, statusCache.sets)
}
