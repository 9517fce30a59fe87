package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for requests and responses

type LineItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0,lte=999"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"decimal_gt_zero"`
}

type CreatePurchaseRequest struct {
	CustomerID       uuid.UUID         `json:"customer_id" validate:"required"`
	InstallmentCount int               `json:"installment_count" validate:"required,gt=0,lte=60"`
	Items            []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	Note             *string           `json:"note,omitempty" validate:"omitempty,max=300"`
}

type ApplyPaymentRequest struct {
	CustomerID uuid.UUID       `json:"customer_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"decimal_gt_zero"`
	Method     string          `json:"method" validate:"required"`
	Note       *string         `json:"note,omitempty" validate:"omitempty,max=300"`

	// IdempotencyKey is taken from the Idempotency-Key header, never the body.
	IdempotencyKey string `json:"-"`
}

type CreateCustomerRequest struct {
	Name                     string          `json:"name" validate:"required,min=2,max=150"`
	Email                    string          `json:"email" validate:"required,email,max=150"`
	CreditLimit              decimal.Decimal `json:"credit_limit" validate:"decimal_gte_zero"`
	MaxInstallments          int             `json:"max_installments" validate:"required,gte=1,lte=60"`
	DelinquencyToleranceDays int             `json:"delinquency_tolerance_days" validate:"gte=0,lte=30"`
	PayDay                   int             `json:"pay_day" validate:"required,gte=1,lte=31"`
}
