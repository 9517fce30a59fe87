package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/repository"
	customError "github.com/segyhp/credit-engine/pkg/errors"
)

const (
	opCreateCustomer     = "create_customer"
	opDeactivateCustomer = "deactivate_customer"
)

// CustomerService opens and closes credit lines.
type CustomerService struct {
	base
	accounts *AccountService
}

func NewCustomerService(repos Repositories, accounts *AccountService, cfg *config.Config, log *logrus.Logger, opts ...Option) *CustomerService {
	return &CustomerService{base: newBase(repos, cfg, log, opts), accounts: accounts}
}

// CreateCustomer opens a credit line with the whole limit available and a COMPLIANT status.
func (s *CustomerService) CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error) {
	if err := s.checkCustomer(request); err != nil {
		s.metrics.RuleRejected(opCreateCustomer, customError.CodeOf(err))
		return nil, err
	}

	var customer *domain.Customer
	err := s.withRetry(ctx, opCreateCustomer, func() error {
		return s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			c, err := s.createCustomer(ctx, request)
			if err != nil {
				return err
			}
			customer = c
			return nil
		})
	})
	if err != nil {
		if customError.IsRuleViolation(err) {
			s.metrics.RuleRejected(opCreateCustomer, customError.CodeOf(err))
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"customer_id":  customer.ID,
		"credit_limit": customer.CreditLimit.StringFixed(2),
	}).Info("customer created")

	return customer, nil
}

func (s *CustomerService) checkCustomer(request *domain.CreateCustomerRequest) error {
	invalid := func(format string, args ...interface{}) error {
		return customError.NewBusinessError(customError.ErrCodeInvalidCustomer, fmt.Sprintf(format, args...), nil)
	}

	switch {
	case strings.TrimSpace(request.Name) == "":
		return invalid("name is required")
	case normalizeEmail(request.Email) == "":
		return invalid("email is required")
	case request.CreditLimit.IsNegative():
		return invalid("credit limit must not be negative, got %s", request.CreditLimit.String())
	case !request.CreditLimit.Equal(request.CreditLimit.Round(2)):
		return invalid("credit limit has sub-cent precision: %s", request.CreditLimit.String())
	case request.MaxInstallments < 1 || request.MaxInstallments > s.config.Business.MaxInstallments:
		return invalid("max installments must be between 1 and %d, got %d", s.config.Business.MaxInstallments, request.MaxInstallments)
	case request.PayDay < 1 || request.PayDay > 31:
		return invalid("pay day must be between 1 and 31, got %d", request.PayDay)
	case request.DelinquencyToleranceDays < 0:
		return invalid("delinquency tolerance must not be negative, got %d", request.DelinquencyToleranceDays)
	}
	return nil
}

func (s *CustomerService) createCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, error) {
	email := normalizeEmail(request.Email)

	_, err := s.repos.Customers.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, emailTaken(email)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, storeErr(err)
	}

	now := s.now()
	limit := request.CreditLimit.Round(2)
	customer := &domain.Customer{
		ID:                       uuid.New(),
		Name:                     strings.TrimSpace(request.Name),
		Email:                    email,
		CreditLimit:              limit,
		AvailableCredit:          limit,
		MaxInstallments:          request.MaxInstallments,
		DelinquencyToleranceDays: request.DelinquencyToleranceDays,
		PayDay:                   request.PayDay,
		Active:                   true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.repos.Customers.Create(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, emailTaken(email)
		}
		return nil, storeErr(err)
	}

	status := domain.NewAccountStatus(customer.ID)
	status.UpdatedAt = now
	if err := s.repos.Statuses.Upsert(ctx, status); err != nil {
		return nil, storeErr(err)
	}

	return customer, nil
}

// GetCustomer returns a customer whether active or not.
func (s *CustomerService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	return s.requireCustomer(ctx, customerID)
}

// GetCustomerByEmail looks a customer up by email, case-insensitively.
func (s *CustomerService) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	normalized := normalizeEmail(email)
	customer, err := s.repos.Customers.GetByEmail(ctx, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapCustomerEmailNotFound(normalized)
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return customer, nil
}

// DeactivateCustomer soft-deletes a customer. It is refused while any installment
// still owes money; deactivating an inactive customer is a no-op.
func (s *CustomerService) DeactivateCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	var customer *domain.Customer
	err := s.withRetry(ctx, opDeactivateCustomer, func() error {
		return s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			c, err := s.deactivate(ctx, customerID)
			if err != nil {
				return err
			}
			customer = c
			return nil
		})
	})
	if err != nil {
		if customError.IsRuleViolation(err) {
			s.metrics.RuleRejected(opDeactivateCustomer, customError.CodeOf(err))
		}
		return nil, err
	}

	s.accounts.invalidate(ctx, customerID)
	s.log.WithField("customer_id", customerID).Info("customer deactivated")
	return customer, nil
}

func (s *CustomerService) deactivate(ctx context.Context, customerID uuid.UUID) (*domain.Customer, error) {
	// same lock order as purchases and payments: customer, then its installments
	customer, err := s.lockCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !customer.Active {
		return customer, nil
	}

	outstanding, err := s.repos.Installments.ListOutstandingForUpdate(ctx, customerID)
	if err != nil {
		return nil, storeErr(err)
	}

	debt := decimal.Zero
	for _, inst := range outstanding {
		debt = debt.Add(inst.OutstandingBalance)
	}
	if debt.IsPositive() {
		return nil, customError.NewBusinessError(customError.ErrCodeCustomerHasDebt,
			fmt.Sprintf("Customer %s still owes %s", customerID, debt.StringFixed(2)), nil)
	}

	if err := s.repos.Customers.SetActive(ctx, customerID, false); err != nil {
		return nil, storeErr(err)
	}
	customer.Active = false
	customer.UpdatedAt = s.now()
	return customer, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailTaken(email string) error {
	return customError.NewBusinessError(customError.ErrCodeEmailTaken,
		fmt.Sprintf("A customer with email %s already exists", email), nil)
}
