package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a store-credit holder.
type Customer struct {
	ID                       uuid.UUID       `json:"id" db:"id"`
	Name                     string          `json:"name" db:"name"`
	Email                    string          `json:"email" db:"email"`
	CreditLimit              decimal.Decimal `json:"credit_limit" db:"credit_limit"`
	AvailableCredit          decimal.Decimal `json:"available_credit" db:"available_credit"`
	MaxInstallments          int             `json:"max_installments" db:"max_installments"`
	DelinquencyToleranceDays int             `json:"delinquency_tolerance_days" db:"delinquency_tolerance_days"`
	PayDay                   int             `json:"pay_day" db:"pay_day"`
	Active                   bool            `json:"active" db:"active"`
	CreatedAt                time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at" db:"updated_at"`
}

// CommittedCredit is the part of the ceiling held by active purchases.
func (c *Customer) CommittedCredit() decimal.Decimal {
	return c.CreditLimit.Sub(c.AvailableCredit)
}
