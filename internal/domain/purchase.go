package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PurchaseStatusActive = "ACTIVE"
	PurchaseStatusPaid   = "PAID"
)

// Purchase is a credit purchase paid off through installments.
type Purchase struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	CustomerID       uuid.UUID       `json:"customer_id" db:"customer_id"`
	PurchaseNumber   string          `json:"purchase_number" db:"purchase_number"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"`
	InstallmentCount int             `json:"installment_count" db:"installment_count"`
	MonthlyAmount    decimal.Decimal `json:"monthly_amount" db:"monthly_amount"`
	Status           string          `json:"status" db:"status"`
	Note             *string         `json:"note,omitempty" db:"note"`
	PurchasedAt      time.Time       `json:"purchased_at" db:"purchased_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`

	Items        []*LineItem    `json:"items,omitempty" db:"-"`
	Installments []*Installment `json:"installments,omitempty" db:"-"`
}

// LineItem is one product line of a purchase; UnitPrice is the catalog price at purchase time.
type LineItem struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	PurchaseID uuid.UUID       `json:"purchase_id" db:"purchase_id"`
	ProductID  uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal" db:"subtotal"`
}
