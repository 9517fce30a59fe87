package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// PurchaseFilter narrows a purchase listing. Nil or empty fields match everything.
// From is inclusive and To exclusive, both on purchased_at.
type PurchaseFilter struct {
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Status     string
	Limit      int
}

// PaymentFilter narrows a payment listing. From is inclusive and To exclusive, both on paid_at.
type PaymentFilter struct {
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Method     string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Limit      int
}

// ParsePurchaseStatus normalizes s and reports whether it is a purchase status.
func ParsePurchaseStatus(s string) (string, bool) {
	switch st := strings.ToUpper(strings.TrimSpace(s)); st {
	case PurchaseStatusActive, PurchaseStatusPaid:
		return st, true
	}
	return "", false
}
