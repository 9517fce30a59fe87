package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrNotFound            = errors.New("not found")
	ErrRuleViolation       = errors.New("business rule violation")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrInternal            = errors.New("internal consistency failure")
)

// Kind classifies a BusinessError for callers deciding how to react.
type Kind int

const (
	KindBusinessRule Kind = iota
	KindNotFound
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	default:
		return "business_rule"
	}
}

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a BusinessError against the sentinel of its kind.
func (e *BusinessError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRuleViolation:
		return e.Kind == KindBusinessRule
	case ErrConcurrencyConflict:
		return e.Kind == KindConflict
	case ErrInternal:
		return e.Kind == KindInternal
	}
	return false
}

// NewBusinessError creates a new business rule violation
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    KindBusinessRule,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func newError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{Kind: kind, Code: code, Message: message, Err: err}
}

// Error codes
const (
	ErrCodeCustomerNotFound       = "CUSTOMER_NOT_FOUND"
	ErrCodeCustomerInactive       = "CUSTOMER_INACTIVE"
	ErrCodeCustomerDelinquent     = "CUSTOMER_DELINQUENT"
	ErrCodeCustomerHasOverdue     = "CUSTOMER_HAS_OVERDUE"
	ErrCodeInstallmentsExceeded   = "INSTALLMENTS_EXCEEDED"
	ErrCodeInvalidInstallments    = "INVALID_INSTALLMENT_COUNT"
	ErrCodeEmptyPurchase          = "EMPTY_PURCHASE"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeProductInactive        = "PRODUCT_INACTIVE"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeStalePrice             = "STALE_PRICE"
	ErrCodeDuplicateLineItem      = "DUPLICATE_LINE_ITEM"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeBelowMinimumPurchase   = "BELOW_MINIMUM_PURCHASE"
	ErrCodeCreditExceeded         = "CREDIT_EXCEEDED"
	ErrCodeCreditLimitExceeded    = "CREDIT_LIMIT_EXCEEDED"
	ErrCodeCreditDrift            = "CREDIT_DRIFT"
	ErrCodePurchaseNotFound       = "PURCHASE_NOT_FOUND"
	ErrCodeInstallmentNotFound    = "INSTALLMENT_NOT_FOUND"
	ErrCodePaymentNotFound        = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidPaymentMethod   = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidPaymentAmount   = "INVALID_PAYMENT_AMOUNT"
	ErrCodeNoOutstandingDebt      = "NO_OUTSTANDING_DEBT"
	ErrCodePaymentExceedsDebt     = "PAYMENT_EXCEEDS_DEBT"
	ErrCodePaymentExceedsResidual = "PAYMENT_EXCEEDS_INSTALLMENT"
	ErrCodeNoPendingInstallments  = "NO_PENDING_INSTALLMENTS"
	ErrCodeInvalidAmount          = "INVALID_AMOUNT"
	ErrCodeInvalidClassification  = "INVALID_CLASSIFICATION"
	ErrCodeSplitMismatch          = "SPLIT_MISMATCH"
	ErrCodeDuplicateNumber        = "DUPLICATE_NUMBER"
	ErrCodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInvalidFilter          = "INVALID_FILTER"
	ErrCodeInvalidCustomer        = "INVALID_CUSTOMER"
	ErrCodeEmailTaken             = "EMAIL_ALREADY_REGISTERED"
	ErrCodeCustomerHasDebt        = "CUSTOMER_HAS_DEBT"
)

// Wrap common errors with business context
func WrapNotFound(code, entity, id string) *BusinessError {
	return newError(
		KindNotFound,
		code,
		fmt.Sprintf("%s with ID %s not found", entity, id),
		ErrNotFound,
	)
}

func WrapCustomerNotFound(customerID string) *BusinessError {
	return WrapNotFound(ErrCodeCustomerNotFound, "Customer", customerID)
}

func WrapCustomerEmailNotFound(email string) *BusinessError {
	return newError(
		KindNotFound,
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer with email %s not found", email),
		ErrNotFound,
	)
}

func WrapProductNotFound(productID string) *BusinessError {
	return WrapNotFound(ErrCodeProductNotFound, "Product", productID)
}

func WrapPurchaseNotFound(purchaseID string) *BusinessError {
	return WrapNotFound(ErrCodePurchaseNotFound, "Purchase", purchaseID)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return WrapNotFound(ErrCodePaymentNotFound, "Payment", paymentID)
}

func WrapCreditExceeded(available, required decimal.Decimal) *BusinessError {
	return NewBusinessError(
		ErrCodeCreditExceeded,
		fmt.Sprintf("Insufficient credit. Available: %s, required: %s", available.StringFixed(2), required.StringFixed(2)),
		nil,
	)
}

func WrapPaymentExceedsDebt(amount, debt decimal.Decimal) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsDebt,
		fmt.Sprintf("Payment amount %s exceeds total debt %s", amount.StringFixed(2), debt.StringFixed(2)),
		nil,
	)
}

func WrapInvalidPaymentAmount(amount decimal.Decimal) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount.String()),
		nil,
	)
}

func WrapConcurrencyConflict(err error) *BusinessError {
	return newError(
		KindConflict,
		ErrCodeConcurrencyConflict,
		"concurrent modification detected, retry the operation",
		errors.Join(ErrConcurrencyConflict, err),
	)
}

func WrapDuplicateNumber(number string, err error) *BusinessError {
	return newError(
		KindInternal,
		ErrCodeDuplicateNumber,
		fmt.Sprintf("generated number %s collided with an existing record", number),
		err,
	)
}

func WrapInternal(code, message string) *BusinessError {
	return newError(KindInternal, code, message, ErrInternal)
}

func WrapDatabaseError(err error) *BusinessError {
	return newError(
		KindInternal,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return newError(
		KindInternal,
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// KindOf reports the kind of err. Errors that are not BusinessErrors are internal.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// CodeOf returns the business code carried by err, or "" when there is none.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrRuleViolation)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
