package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/repository"
	customError "github.com/segyhp/credit-engine/pkg/errors"
	"github.com/segyhp/credit-engine/pkg/utils"
)

const opCreatePurchase = "create_purchase"

type PurchaseService struct {
	base
	accounts  *AccountService
	validator *CreditValidator
}

func NewPurchaseService(repos Repositories, accounts *AccountService, cfg *config.Config, log *logrus.Logger, opts ...Option) *PurchaseService {
	return &PurchaseService{
		base:      newBase(repos, cfg, log, opts),
		accounts:  accounts,
		validator: NewCreditValidator(cfg.GetMinPurchaseAmount(), cfg.Business.MaxInstallments),
	}
}

// CreatePurchase grants a credit purchase: it validates eligibility, records the
// purchase with its line items and installment plan, takes the stock, debits
// available credit and recomputes the account status, all in one transaction.
func (s *PurchaseService) CreatePurchase(ctx context.Context, request *domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	var purchase *domain.Purchase

	err := s.withRetry(ctx, opCreatePurchase, func() error {
		return s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			p, err := s.createPurchase(ctx, request)
			if err != nil {
				return err
			}
			purchase = p
			return nil
		})
	})
	if err != nil {
		if customError.IsRuleViolation(err) {
			s.metrics.RuleRejected(opCreatePurchase, customError.CodeOf(err))
		}
		s.log.WithError(err).WithField("customer_id", request.CustomerID).Warn("purchase rejected")
		return nil, err
	}

	s.accounts.invalidate(ctx, purchase.CustomerID)
	s.metrics.PurchaseCreated(purchase.TotalAmount)
	s.log.WithFields(logrus.Fields{
		"customer_id":     purchase.CustomerID,
		"purchase_number": purchase.PurchaseNumber,
		"total":           purchase.TotalAmount.StringFixed(2),
		"installments":    purchase.InstallmentCount,
	}).Info("purchase created")

	return purchase, nil
}

func (s *PurchaseService) createPurchase(ctx context.Context, request *domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	today := s.today()

	// 1. Lock the customer and derive its current status
	customer, err := s.lockCustomer(ctx, request.CustomerID)
	if err != nil {
		return nil, err
	}

	status, err := s.accounts.derive(ctx, customer, today)
	if err != nil {
		return nil, err
	}

	// 2. Validate against catalog and credit
	lines, err := s.loadLines(ctx, request.Items)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidatePurchase(customer, status, lines, request.InstallmentCount); err != nil {
		return nil, err
	}

	// 3. Price lines from the catalog
	now := s.now()
	purchase := &domain.Purchase{
		ID:               uuid.New(),
		CustomerID:       customer.ID,
		PurchaseNumber:   utils.GeneratePurchaseNumber(now),
		InstallmentCount: request.InstallmentCount,
		Status:           domain.PurchaseStatusActive,
		Note:             request.Note,
		PurchasedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	total := decimal.Zero
	for _, line := range lines {
		item := &domain.LineItem{
			ID:         uuid.New(),
			PurchaseID: purchase.ID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.Product.Price,
			Subtotal:   line.Subtotal(),
		}
		purchase.Items = append(purchase.Items, item)
		total = total.Add(item.Subtotal)
	}
	purchase.TotalAmount = total
	purchase.MonthlyAmount = utils.RoundMoney(total.Div(decimal.NewFromInt(int64(request.InstallmentCount))))

	// 4. Split into installments due on the customer's pay day
	amounts, err := utils.SplitExact(total, request.InstallmentCount)
	if err != nil {
		return nil, err
	}

	installments := make([]*domain.Installment, 0, len(amounts))
	for i, amount := range amounts {
		installments = append(installments, &domain.Installment{
			ID:                 uuid.New(),
			PurchaseID:         purchase.ID,
			CustomerID:         customer.ID,
			SequenceNumber:     i + 1,
			DueDate:            utils.DueDate(today, i+1, customer.PayDay),
			ScheduledAmount:    amount,
			AmountPaid:         decimal.Zero,
			OutstandingBalance: amount,
			Status:             domain.InstallmentStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	// 5. Persist purchase, items and plan
	if err := s.repos.Purchases.Create(ctx, purchase); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, customError.WrapDuplicateNumber(purchase.PurchaseNumber, err)
		}
		return nil, storeErr(err)
	}

	if err := s.repos.Installments.CreateBatch(ctx, installments); err != nil {
		return nil, storeErr(err)
	}

	for _, item := range purchase.Items {
		if err := s.repos.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, customError.NewBusinessError(customError.ErrCodeInsufficientStock,
					fmt.Sprintf("Product %s no longer has %d in stock", item.ProductID, item.Quantity), err)
			}
			return nil, storeErr(err)
		}
	}

	// 6. Debit credit
	customer.AvailableCredit = customer.AvailableCredit.Sub(total)
	if err := s.repos.Customers.UpdateAvailableCredit(ctx, customer.ID, customer.AvailableCredit); err != nil {
		return nil, storeErr(err)
	}

	// 7. Recompute the account status
	if _, err := s.accounts.recalculate(ctx, customer, today); err != nil {
		return nil, err
	}

	purchase.Installments = installments
	return purchase, nil
}

// loadLines pairs each requested line with its catalog product; unknown products stay nil
// so the validator reports them in line order.
func (s *PurchaseService) loadLines(ctx context.Context, items []domain.LineItemRequest) ([]LineCandidate, error) {
	lines := make([]LineCandidate, 0, len(items))
	for _, item := range items {
		line := LineCandidate{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}

		product, err := s.repos.Products.GetByID(ctx, item.ProductID)
		switch {
		case err == nil:
			line.Product = product
		case !errors.Is(err, sql.ErrNoRows):
			return nil, storeErr(err)
		}

		lines = append(lines, line)
	}
	return lines, nil
}

// GetPurchase returns a purchase with its line items and installment plan.
func (s *PurchaseService) GetPurchase(ctx context.Context, purchaseID uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.repos.Purchases.GetByID(ctx, purchaseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapPurchaseNotFound(purchaseID.String())
	}
	if err != nil {
		return nil, storeErr(err)
	}

	installments, err := s.repos.Installments.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, storeErr(err)
	}
	purchase.Installments = installments

	return purchase, nil
}

// ListCustomerPurchases returns a customer's purchases, newest first.
func (s *PurchaseService) ListCustomerPurchases(ctx context.Context, customerID uuid.UUID) ([]*domain.Purchase, error) {
	if _, err := s.requireCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	purchases, err := s.repos.Purchases.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return purchases, nil
}

// ListPurchases returns purchases across customers matching filter, newest first.
func (s *PurchaseService) ListPurchases(ctx context.Context, filter domain.PurchaseFilter) ([]*domain.Purchase, error) {
	filter, err := normalizePurchaseFilter(filter)
	if err != nil {
		return nil, err
	}

	purchases, err := s.repos.Purchases.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	return purchases, nil
}
