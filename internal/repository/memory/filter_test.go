package memory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/repository"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 12, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestPurchaseRepo_List(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	add := func(customer uuid.UUID, at time.Time, total, status string) *domain.Purchase {
		p := &domain.Purchase{
			ID:             uuid.New(),
			CustomerID:     customer,
			PurchaseNumber: "CMP-" + uuid.NewString()[:8],
			TotalAmount:    decimal.RequireFromString(total),
			Status:         status,
			PurchasedAt:    at,
		}
		require.NoError(t, s.Purchases().Create(ctx, p))
		return p
	}
	jan := add(alice, day(time.January, 10), "300.00", domain.PurchaseStatusPaid)
	feb := add(alice, day(time.February, 10), "1200.00", domain.PurchaseStatusActive)
	bobs := add(bob, day(time.January, 20), "150.00", domain.PurchaseStatusActive)

	tests := []struct {
		name   string
		filter domain.PurchaseFilter
		want   []*domain.Purchase
	}{
		{name: "everything newest first", filter: domain.PurchaseFilter{}, want: []*domain.Purchase{feb, bobs, jan}},
		{name: "by customer", filter: domain.PurchaseFilter{CustomerID: &bob}, want: []*domain.Purchase{bobs}},
		{name: "from is inclusive", filter: domain.PurchaseFilter{From: ptr(day(time.January, 20))}, want: []*domain.Purchase{feb, bobs}},
		{name: "to is exclusive", filter: domain.PurchaseFilter{To: ptr(day(time.January, 20))}, want: []*domain.Purchase{jan}},
		{name: "amount range", filter: domain.PurchaseFilter{MinAmount: ptr(decimal.NewFromInt(200)), MaxAmount: ptr(decimal.NewFromInt(1000))}, want: []*domain.Purchase{jan}},
		{name: "status", filter: domain.PurchaseFilter{Status: domain.PurchaseStatusActive}, want: []*domain.Purchase{feb, bobs}},
		{name: "limit", filter: domain.PurchaseFilter{Limit: 1}, want: []*domain.Purchase{feb}},
		{name: "nothing matches", filter: domain.PurchaseFilter{CustomerID: &bob, Status: domain.PurchaseStatusPaid}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Purchases().List(ctx, tt.filter)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].ID, got[i].ID)
			}
		})
	}
}

func TestPaymentRepo_List(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	add := func(customer uuid.UUID, at time.Time, amount, method string) *domain.Payment {
		p := &domain.Payment{
			ID:            uuid.New(),
			CustomerID:    customer,
			ReceiptNumber: "REC-" + uuid.NewString()[:8],
			Amount:        decimal.RequireFromString(amount),
			Method:        method,
			PaidAt:        at,
		}
		require.NoError(t, s.Payments().Create(ctx, p))
		return p
	}
	cash := add(alice, day(time.March, 1), "50.00", domain.PaymentMethodCash)
	card := add(alice, day(time.March, 5), "250.00", domain.PaymentMethodCard)
	transfer := add(bob, day(time.March, 3), "100.00", domain.PaymentMethodTransfer)

	tests := []struct {
		name   string
		filter domain.PaymentFilter
		want   []*domain.Payment
	}{
		{name: "everything latest first", filter: domain.PaymentFilter{}, want: []*domain.Payment{card, transfer, cash}},
		{name: "by customer", filter: domain.PaymentFilter{CustomerID: &alice}, want: []*domain.Payment{card, cash}},
		{name: "by method", filter: domain.PaymentFilter{Method: domain.PaymentMethodTransfer}, want: []*domain.Payment{transfer}},
		{name: "date window", filter: domain.PaymentFilter{From: ptr(day(time.March, 2)), To: ptr(day(time.March, 5))}, want: []*domain.Payment{transfer}},
		{name: "minimum amount", filter: domain.PaymentFilter{MinAmount: ptr(decimal.NewFromInt(100))}, want: []*domain.Payment{card, transfer}},
		{name: "maximum amount", filter: domain.PaymentFilter{MaxAmount: ptr(decimal.NewFromInt(99))}, want: []*domain.Payment{cash}},
		{name: "limit", filter: domain.PaymentFilter{Limit: 2}, want: []*domain.Payment{card, transfer}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Payments().List(ctx, tt.filter)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].ID, got[i].ID)
			}
		})
	}
}

func TestCustomerRepo_CreateAndDeactivate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	c := &domain.Customer{ID: uuid.New(), Name: "Rosa", Email: "rosa@example.com", CreditLimit: decimal.NewFromInt(500), AvailableCredit: decimal.NewFromInt(500), Active: true}
	require.NoError(t, s.Customers().Create(ctx, c))

	dup := *c
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.Customers().Create(ctx, &dup), repository.ErrDuplicateKey)

	got, err := s.Customers().GetByEmail(ctx, "rosa@example.com")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	require.NoError(t, s.Customers().SetActive(ctx, c.ID, false))
	got, err = s.Customers().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = s.Customers().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
