package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/credit-engine/internal/domain"
	customError "github.com/segyhp/credit-engine/pkg/errors"
)

// LineCandidate is a requested line paired with the catalog product it names.
// Product is nil when the catalog has no such product.
type LineCandidate struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Product   *domain.Product
}

// Subtotal prices the line at the catalog price, never the client snapshot.
func (l LineCandidate) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CreditValidator decides whether a purchase may be granted. It has no side effects.
type CreditValidator struct {
	minPurchase     decimal.Decimal
	maxInstallments int
}

func NewCreditValidator(minPurchase decimal.Decimal, maxInstallments int) *CreditValidator {
	return &CreditValidator{minPurchase: minPurchase, maxInstallments: maxInstallments}
}

// ValidatePurchase runs the eligibility checks in order and returns the first failure.
// status must be derived from the customer's current installments.
func (v *CreditValidator) ValidatePurchase(customer *domain.Customer, status *domain.AccountStatus, lines []LineCandidate, installmentCount int) error {
	// 1. customer
	if customer == nil {
		return customError.WrapNotFound(customError.ErrCodeCustomerNotFound, "Customer", "unknown")
	}
	if !customer.Active {
		return customError.NewBusinessError(customError.ErrCodeCustomerInactive,
			fmt.Sprintf("Customer %s is inactive", customer.ID), nil)
	}

	if status == nil {
		status = domain.NewAccountStatus(customer.ID)
	}

	// 2. classification
	if status.Classification == domain.ClassificationDelinquent {
		return customError.NewBusinessError(customError.ErrCodeCustomerDelinquent,
			fmt.Sprintf("Customer %s is delinquent", customer.ID), nil)
	}

	// 3. overdue installments
	if status.OverdueCount > 0 {
		return customError.NewBusinessError(customError.ErrCodeCustomerHasOverdue,
			fmt.Sprintf("Customer %s has %d overdue installments", customer.ID, status.OverdueCount), nil)
	}

	// 4. installment count
	if installmentCount < 1 {
		return customError.NewBusinessError(customError.ErrCodeInvalidInstallments,
			fmt.Sprintf("Installment count must be at least 1, got %d", installmentCount), nil)
	}
	if installmentCount > customer.MaxInstallments || installmentCount > v.maxInstallments {
		return customError.NewBusinessError(customError.ErrCodeInstallmentsExceeded,
			fmt.Sprintf("Installment count %d exceeds the allowed maximum of %d",
				installmentCount, min(customer.MaxInstallments, v.maxInstallments)), nil)
	}

	// 5. line items
	if err := validateLines(lines); err != nil {
		return err
	}

	total := PurchaseTotal(lines)

	// 6. floor
	if total.LessThan(v.minPurchase) {
		return customError.NewBusinessError(customError.ErrCodeBelowMinimumPurchase,
			fmt.Sprintf("Purchase total %s is below the minimum of %s", total.StringFixed(2), v.minPurchase.StringFixed(2)), nil)
	}

	// every installment must carry at least a cent
	if total.Shift(2).LessThan(decimal.NewFromInt(int64(installmentCount))) {
		return customError.NewBusinessError(customError.ErrCodeInvalidInstallments,
			fmt.Sprintf("Purchase total %s cannot be split into %d installments", total.StringFixed(2), installmentCount), nil)
	}

	// 7. credit
	return checkCredit(customer, status.TotalDebt, total)
}

func validateLines(lines []LineCandidate) error {
	if len(lines) == 0 {
		return customError.NewBusinessError(customError.ErrCodeEmptyPurchase, "Purchase has no line items", nil)
	}

	seen := make(map[uuid.UUID]bool, len(lines))
	for i, line := range lines {
		if seen[line.ProductID] {
			return customError.NewBusinessError(customError.ErrCodeDuplicateLineItem,
				fmt.Sprintf("Product %s appears more than once", line.ProductID), nil)
		}
		seen[line.ProductID] = true

		if line.Quantity <= 0 {
			return customError.NewBusinessError(customError.ErrCodeInvalidQuantity,
				fmt.Sprintf("Line %d: quantity must be positive, got %d", i+1, line.Quantity), nil)
		}

		product := line.Product
		if product == nil {
			return customError.WrapProductNotFound(line.ProductID.String())
		}
		if !product.Active {
			return customError.NewBusinessError(customError.ErrCodeProductInactive,
				fmt.Sprintf("Product %s is inactive", product.Code), nil)
		}
		if product.Stock < line.Quantity {
			return customError.NewBusinessError(customError.ErrCodeInsufficientStock,
				fmt.Sprintf("Product %s has %d in stock, requested %d", product.Code, product.Stock, line.Quantity), nil)
		}
		if !line.UnitPrice.Equal(product.Price) {
			return customError.NewBusinessError(customError.ErrCodeStalePrice,
				fmt.Sprintf("Product %s price changed from %s to %s", product.Code, line.UnitPrice.StringFixed(2), product.Price.StringFixed(2)), nil)
		}
	}

	return nil
}

// checkCredit compares the purchase against both the cached counter and the
// ceiling minus derived debt. A counter that disagrees with the derivation is drift.
func checkCredit(customer *domain.Customer, debt, total decimal.Decimal) error {
	available := customer.AvailableCredit
	ceiling := customer.CreditLimit

	if available.IsNegative() || available.GreaterThan(ceiling) || available.GreaterThan(ceiling.Sub(debt)) {
		return customError.WrapInternal(customError.ErrCodeCreditDrift,
			fmt.Sprintf("available credit %s disagrees with ceiling %s and debt %s for customer %s",
				available.StringFixed(2), ceiling.StringFixed(2), debt.StringFixed(2), customer.ID))
	}

	if total.GreaterThan(available) {
		return customError.WrapCreditExceeded(available, total)
	}

	if debt.Add(total).GreaterThan(ceiling) {
		return customError.NewBusinessError(customError.ErrCodeCreditLimitExceeded,
			fmt.Sprintf("Debt %s plus purchase %s exceeds credit limit %s", debt.StringFixed(2), total.StringFixed(2), ceiling.StringFixed(2)), nil)
	}

	return nil
}

// PurchaseTotal sums the catalog-priced subtotals of lines whose product is known.
func PurchaseTotal(lines []LineCandidate) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Product != nil {
			total = total.Add(line.Subtotal())
		}
	}
	return total
}
