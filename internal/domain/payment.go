package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodTransfer = "TRANSFER"
	PaymentMethodCard     = "CARD"
)

// Payment is money received from a customer and applied to exactly one installment.
type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	CustomerID    uuid.UUID       `json:"customer_id" db:"customer_id"`
	InstallmentID uuid.UUID       `json:"installment_id" db:"installment_id"`
	PurchaseID    uuid.UUID       `json:"purchase_id" db:"purchase_id"`
	ReceiptNumber string          `json:"receipt_number" db:"receipt_number"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Method        string          `json:"method" db:"method"`
	Note          *string         `json:"note,omitempty" db:"note"`
	PaidAt        time.Time       `json:"paid_at" db:"paid_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ParsePaymentMethod normalizes s and reports whether it is an accepted method.
func ParsePaymentMethod(s string) (string, bool) {
	m := strings.ToUpper(strings.TrimSpace(s))
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard:
		return m, true
	}
	return "", false
}

// PaymentSummary aggregates a customer's payment history.
type PaymentSummary struct {
	CustomerID          uuid.UUID       `json:"customer_id"`
	TotalPaid           decimal.Decimal `json:"total_paid"`
	PaymentCount        int             `json:"payment_count"`
	LastPaymentAt       *time.Time      `json:"last_payment_at,omitempty"`
	CurrentDebt         decimal.Decimal `json:"current_debt"`
	PendingInstallments int             `json:"pending_installments"`
	OverdueInstallments int             `json:"overdue_installments"`
}
