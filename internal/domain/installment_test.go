package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInstallment_IsOverdue(t *testing.T) {
	today := time.Date(2024, time.March, 1, 15, 0, 0, 0, time.UTC)
	due := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		inst     Installment
		expected bool
	}{
		{
			name:     "past due with balance",
			inst:     Installment{DueDate: due(2024, time.February, 15), OutstandingBalance: decimal.NewFromInt(10), Status: InstallmentStatusPending},
			expected: true,
		},
		{
			name:     "due today is not overdue",
			inst:     Installment{DueDate: due(2024, time.March, 1), OutstandingBalance: decimal.NewFromInt(10), Status: InstallmentStatusPending},
			expected: false,
		},
		{
			name:     "stored overdue status wins",
			inst:     Installment{DueDate: due(2024, time.April, 1), OutstandingBalance: decimal.NewFromInt(10), Status: InstallmentStatusOverdue},
			expected: true,
		},
		{
			name:     "paid is never overdue",
			inst:     Installment{DueDate: due(2024, time.January, 1), OutstandingBalance: decimal.Zero, Status: InstallmentStatusPaid},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.inst.IsOverdue(today))
		})
	}
}

func TestInstallment_Apply(t *testing.T) {
	inst := &Installment{
		ScheduledAmount:    decimal.RequireFromString("333.34"),
		AmountPaid:         decimal.Zero,
		OutstandingBalance: decimal.RequireFromString("333.34"),
		Status:             InstallmentStatusOverdue,
	}

	inst.Apply(decimal.RequireFromString("100"))
	assert.Equal(t, InstallmentStatusOverdue, inst.Status)
	assert.True(t, inst.OutstandingBalance.Equal(decimal.RequireFromString("233.34")))

	inst.Apply(decimal.RequireFromString("233.34"))
	assert.Equal(t, InstallmentStatusPaid, inst.Status)
	assert.True(t, inst.OutstandingBalance.IsZero())
	assert.True(t, inst.ScheduledAmount.Equal(inst.AmountPaid.Add(inst.OutstandingBalance)))
}

func TestParsePaymentMethod(t *testing.T) {
	m, ok := ParsePaymentMethod(" transfer ")
	assert.True(t, ok)
	assert.Equal(t, PaymentMethodTransfer, m)

	_, ok = ParsePaymentMethod("CHEQUE")
	assert.False(t, ok)

	c, ok := ParseClassification("at_risk")
	assert.True(t, ok)
	assert.Equal(t, ClassificationAtRisk, c)
}
