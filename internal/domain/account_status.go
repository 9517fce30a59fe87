package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ClassificationCompliant  = "COMPLIANT"
	ClassificationAtRisk     = "AT_RISK"
	ClassificationDelinquent = "DELINQUENT"
)

// AccountStatus is the derived debt/classification snapshot of a customer.
// It is always recomputed from installments, never adjusted in place.
type AccountStatus struct {
	CustomerID     uuid.UUID       `json:"customer_id" db:"customer_id"`
	Classification string          `json:"classification" db:"classification"`
	TotalDebt      decimal.Decimal `json:"total_debt" db:"total_debt"`
	OverdueCount   int             `json:"overdue_count" db:"overdue_count"`
	MaxDaysOverdue int             `json:"max_days_overdue" db:"max_days_overdue"`
	LastPaymentAt  *time.Time      `json:"last_payment_at,omitempty" db:"last_payment_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// NewAccountStatus returns the status of a customer with no history.
func NewAccountStatus(customerID uuid.UUID) *AccountStatus {
	return &AccountStatus{
		CustomerID:     customerID,
		Classification: ClassificationCompliant,
		TotalDebt:      decimal.Zero,
	}
}

// ParseClassification normalizes s and reports whether it names a classification.
func ParseClassification(s string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(s))
	switch c {
	case ClassificationCompliant, ClassificationAtRisk, ClassificationDelinquent:
		return c, true
	}
	return "", false
}
