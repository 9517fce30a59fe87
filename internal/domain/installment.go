package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending = "PENDING"
	InstallmentStatusOverdue = "OVERDUE"
	InstallmentStatusPaid    = "PAID"
)

// Installment is one scheduled slice of a purchase.
// ScheduledAmount == AmountPaid + OutstandingBalance at all times.
type Installment struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	PurchaseID         uuid.UUID       `json:"purchase_id" db:"purchase_id"`
	CustomerID         uuid.UUID       `json:"customer_id" db:"customer_id"`
	SequenceNumber     int             `json:"sequence_number" db:"sequence_number"`
	DueDate            time.Time       `json:"due_date" db:"due_date"`
	ScheduledAmount    decimal.Decimal `json:"scheduled_amount" db:"scheduled_amount"`
	AmountPaid         decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance" db:"outstanding_balance"`
	Status             string          `json:"status" db:"status"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// HasBalance reports whether anything is still owed on the installment.
func (i *Installment) HasBalance() bool {
	return i.OutstandingBalance.IsPositive()
}

// IsOverdue reports whether the installment is past due and unpaid on today.
// The stored OVERDUE status is honoured even before the daily sweep catches up.
func (i *Installment) IsOverdue(today time.Time) bool {
	if !i.HasBalance() {
		return false
	}
	if i.Status == InstallmentStatusOverdue {
		return true
	}
	y, m, d := today.Date()
	return i.DueDate.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Apply records amount against the installment and flips it to PAID once nothing is owed.
func (i *Installment) Apply(amount decimal.Decimal) {
	i.AmountPaid = i.AmountPaid.Add(amount)
	i.OutstandingBalance = i.OutstandingBalance.Sub(amount)
	if !i.HasBalance() {
		i.Status = InstallmentStatusPaid
	}
}
