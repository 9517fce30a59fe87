package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/credit-engine/internal/domain"
	customError "github.com/segyhp/credit-engine/pkg/errors"
)

func invalidFilter(format string, args ...interface{}) error {
	return customError.NewBusinessError(customError.ErrCodeInvalidFilter, fmt.Sprintf(format, args...), nil)
}

// listLimit applies the default page size and rejects sizes outside (0, MaxListLimit].
func listLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return domain.DefaultListLimit, nil
	case limit < 0 || limit > domain.MaxListLimit:
		return 0, invalidFilter("limit must be between 1 and %d, got %d", domain.MaxListLimit, limit)
	}
	return limit, nil
}

func checkWindow(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return invalidFilter("from %s must be before to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

func checkAmountRange(minAmount, maxAmount *decimal.Decimal) error {
	if minAmount != nil && minAmount.IsNegative() {
		return invalidFilter("min_amount must not be negative")
	}
	if maxAmount != nil && maxAmount.IsNegative() {
		return invalidFilter("max_amount must not be negative")
	}
	if minAmount != nil && maxAmount != nil && minAmount.GreaterThan(*maxAmount) {
		return invalidFilter("min_amount %s exceeds max_amount %s", minAmount.StringFixed(2), maxAmount.StringFixed(2))
	}
	return nil
}

func normalizePurchaseFilter(f domain.PurchaseFilter) (domain.PurchaseFilter, error) {
	if f.Status != "" {
		status, ok := domain.ParsePurchaseStatus(f.Status)
		if !ok {
			return f, invalidFilter("unknown purchase status %q", f.Status)
		}
		f.Status = status
	}
	if err := checkWindow(f.From, f.To); err != nil {
		return f, err
	}
	if err := checkAmountRange(f.MinAmount, f.MaxAmount); err != nil {
		return f, err
	}

	limit, err := listLimit(f.Limit)
	if err != nil {
		return f, err
	}
	f.Limit = limit
	return f, nil
}

func normalizePaymentFilter(f domain.PaymentFilter) (domain.PaymentFilter, error) {
	if f.Method != "" {
		method, ok := domain.ParsePaymentMethod(f.Method)
		if !ok {
			return f, invalidFilter("unknown payment method %q", f.Method)
		}
		f.Method = method
	}
	if err := checkWindow(f.From, f.To); err != nil {
		return f, err
	}
	if err := checkAmountRange(f.MinAmount, f.MaxAmount); err != nil {
		return f, err
	}

	limit, err := listLimit(f.Limit)
	if err != nil {
		return f, err
	}
	f.Limit = limit
	return f, nil
}
