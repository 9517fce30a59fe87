package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/pkg/response"
)

type PurchaseService interface {
	CreatePurchase(ctx context.Context, request *domain.CreatePurchaseRequest) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, purchaseID uuid.UUID) (*domain.Purchase, error)
	ListCustomerPurchases(ctx context.Context, customerID uuid.UUID) ([]*domain.Purchase, error)
	ListPurchases(ctx context.Context, filter domain.PurchaseFilter) ([]*domain.Purchase, error)
}

type PaymentService interface {
	ApplyPayment(ctx context.Context, request *domain.ApplyPaymentRequest) (*domain.Payment, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	ListCustomerPayments(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error)
	PaymentSummary(ctx context.Context, customerID uuid.UUID) (*domain.PaymentSummary, error)
	ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, error)
}

type AccountService interface {
	GetAccountStatus(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, error)
	Recalculate(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, error)
	ListByClassification(ctx context.Context, classification string) ([]*domain.AccountStatus, error)
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error)
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	DeactivateCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error)
}

// newValidator returns a validator that understands decimal amounts.
// Decimals are validated through their string form.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	mustRegister(v, "decimal_gt_zero", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	mustRegister(v, "decimal_gte_zero", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

// mustRegister panics when a validation cannot be registered; request structs
// would otherwise reference a tag the validator silently does not know.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// decode reads a JSON body into dst and validates it. On failure the response
// is already written and false is returned.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid JSON payload", err)
		return false
	}
	if err := v.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

// pathID parses the named mux variable as a UUID.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}
