package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/cache"
	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/repository"
	customError "github.com/segyhp/credit-engine/pkg/errors"
	"github.com/segyhp/credit-engine/pkg/utils"
)

const opApplyPayment = "apply_payment"

type PaymentService struct {
	base
	accounts    *AccountService
	idempotency IdempotencyStore
}

func NewPaymentService(repos Repositories, accounts *AccountService, idempotency IdempotencyStore, cfg *config.Config, log *logrus.Logger, opts ...Option) *PaymentService {
	return &PaymentService{
		base:        newBase(repos, cfg, log, opts),
		accounts:    accounts,
		idempotency: idempotency,
	}
}

// ApplyPayment records a payment against the customer's highest-priority
// installment. The amount must fit in that installment's outstanding balance;
// covering several installments takes several payments.
func (s *PaymentService) ApplyPayment(ctx context.Context, request *domain.ApplyPaymentRequest) (*domain.Payment, error) {
	method, err := checkPaymentInput(request)
	if err != nil {
		s.metrics.RuleRejected(opApplyPayment, customError.CodeOf(err))
		return nil, err
	}

	key, replay, err := s.claim(ctx, request, method)
	if err != nil || replay != nil {
		return replay, err
	}

	var (
		payment *domain.Payment
		paidOff bool
	)
	err = s.withRetry(ctx, opApplyPayment, func() error {
		return s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			p, done, err := s.applyPayment(ctx, request, method)
			if err != nil {
				return err
			}
			payment, paidOff = p, done
			return nil
		})
	})
	if err != nil {
		s.release(ctx, key)
		if customError.IsRuleViolation(err) {
			s.metrics.RuleRejected(opApplyPayment, customError.CodeOf(err))
		}
		s.log.WithError(err).WithField("customer_id", request.CustomerID).Warn("payment rejected")
		return nil, err
	}

	s.complete(ctx, key, payment.ID)
	s.accounts.invalidate(ctx, payment.CustomerID)
	s.metrics.PaymentApplied(payment.Method, paidOff)
	s.log.WithFields(logrus.Fields{
		"customer_id":    payment.CustomerID,
		"receipt_number": payment.ReceiptNumber,
		"installment_id": payment.InstallmentID,
		"amount":         payment.Amount.StringFixed(2),
		"purchase_paid":  paidOff,
	}).Info("payment applied")

	return payment, nil
}

func checkPaymentInput(request *domain.ApplyPaymentRequest) (string, error) {
	method, ok := domain.ParsePaymentMethod(request.Method)
	if !ok {
		return "", customError.NewBusinessError(customError.ErrCodeInvalidPaymentMethod,
			fmt.Sprintf("Invalid payment method %q", request.Method), nil)
	}

	if !request.Amount.IsPositive() || !request.Amount.Equal(request.Amount.Round(2)) {
		return "", customError.WrapInvalidPaymentAmount(request.Amount)
	}

	return method, nil
}

func (s *PaymentService) applyPayment(ctx context.Context, request *domain.ApplyPaymentRequest, method string) (*domain.Payment, bool, error) {
	today := s.today()

	// 1. Lock the customer, then its outstanding installments
	customer, err := s.lockCustomer(ctx, request.CustomerID)
	if err != nil {
		return nil, false, err
	}
	if !customer.Active {
		return nil, false, customError.NewBusinessError(customError.ErrCodeCustomerInactive,
			fmt.Sprintf("Customer %s is inactive", customer.ID), nil)
	}

	outstanding, err := s.repos.Installments.ListOutstandingForUpdate(ctx, customer.ID)
	if err != nil {
		return nil, false, storeErr(err)
	}

	debt := decimal.Zero
	for _, inst := range outstanding {
		debt = debt.Add(inst.OutstandingBalance)
	}
	if !debt.IsPositive() {
		return nil, false, customError.NewBusinessError(customError.ErrCodeNoOutstandingDebt,
			fmt.Sprintf("Customer %s has no outstanding debt", customer.ID), nil)
	}
	if request.Amount.GreaterThan(debt) {
		return nil, false, customError.WrapPaymentExceedsDebt(request.Amount, debt)
	}

	// 2. Pick the target installment
	purchaseCreated, err := s.purchaseCreationTimes(ctx, customer.ID)
	if err != nil {
		return nil, false, err
	}

	target := SelectTarget(outstanding, purchaseCreated, today)
	if target == nil {
		return nil, false, customError.NewBusinessError(customError.ErrCodeNoPendingInstallments,
			fmt.Sprintf("Customer %s has no pending installments", customer.ID), nil)
	}
	if request.Amount.GreaterThan(target.OutstandingBalance) {
		return nil, false, customError.NewBusinessError(customError.ErrCodePaymentExceedsResidual,
			fmt.Sprintf("Payment amount %s exceeds the %s owed on installment %d",
				request.Amount.StringFixed(2), target.OutstandingBalance.StringFixed(2), target.SequenceNumber), nil)
	}

	// 3. Record the payment
	now := s.now()
	payment := &domain.Payment{
		ID:            uuid.New(),
		CustomerID:    customer.ID,
		InstallmentID: target.ID,
		PurchaseID:    target.PurchaseID,
		ReceiptNumber: utils.GenerateReceiptNumber(now),
		Amount:        request.Amount,
		Method:        method,
		Note:          request.Note,
		PaidAt:        now,
		CreatedAt:     now,
	}
	if err := s.repos.Payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, false, customError.WrapDuplicateNumber(payment.ReceiptNumber, err)
		}
		return nil, false, storeErr(err)
	}

	// 4. Apply it
	target.Apply(request.Amount)
	if err := s.repos.Installments.UpdateBalance(ctx, target); err != nil {
		return nil, false, storeErr(err)
	}

	// 5. Settle the purchase once every installment is paid
	paidOff := false
	if target.Status == domain.InstallmentStatusPaid {
		paidOff, err = s.settlePurchase(ctx, customer, target.PurchaseID)
		if err != nil {
			return nil, false, err
		}
	}

	// 6. Recompute the account status
	if _, err := s.accounts.recalculate(ctx, customer, today); err != nil {
		return nil, false, err
	}

	return payment, paidOff, nil
}

// settlePurchase marks the purchase PAID and gives its total back to available
// credit when none of its installments owes anything.
func (s *PaymentService) settlePurchase(ctx context.Context, customer *domain.Customer, purchaseID uuid.UUID) (bool, error) {
	installments, err := s.repos.Installments.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return false, storeErr(err)
	}
	for _, inst := range installments {
		if inst.HasBalance() {
			return false, nil
		}
	}

	purchase, err := s.repos.Purchases.GetByID(ctx, purchaseID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, customError.WrapPurchaseNotFound(purchaseID.String())
	}
	if err != nil {
		return false, storeErr(err)
	}
	if purchase.Status == domain.PurchaseStatusPaid {
		return false, nil
	}

	if err := s.repos.Purchases.UpdateStatus(ctx, purchaseID, domain.PurchaseStatusPaid); err != nil {
		return false, storeErr(err)
	}

	released := customer.AvailableCredit.Add(purchase.TotalAmount)
	if released.GreaterThan(customer.CreditLimit) {
		return false, customError.WrapInternal(customError.ErrCodeCreditDrift,
			fmt.Sprintf("releasing %s would lift available credit of customer %s to %s, above its limit %s",
				purchase.TotalAmount.StringFixed(2), customer.ID, released.StringFixed(2), customer.CreditLimit.StringFixed(2)))
	}

	customer.AvailableCredit = released
	if err := s.repos.Customers.UpdateAvailableCredit(ctx, customer.ID, released); err != nil {
		return false, storeErr(err)
	}

	return true, nil
}

func (s *PaymentService) purchaseCreationTimes(ctx context.Context, customerID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	purchases, err := s.repos.Purchases.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, storeErr(err)
	}

	created := make(map[uuid.UUID]time.Time, len(purchases))
	for _, p := range purchases {
		created[p.ID] = p.CreatedAt
	}
	return created, nil
}

// claim reserves the request's idempotency key. It returns the recorded payment
// when the key was already used for the same customer, amount and method.
// Cache outages fail open: the payment proceeds without deduplication and the
// returned key is empty.
func (s *PaymentService) claim(ctx context.Context, request *domain.ApplyPaymentRequest, method string) (string, *domain.Payment, error) {
	key := request.IdempotencyKey
	if key == "" || s.idempotency == nil {
		return "", nil, nil
	}

	paymentID, claimed, err := s.idempotency.Claim(ctx, key)
	switch {
	case errors.Is(err, cache.ErrInFlight):
		return "", nil, customError.WrapConcurrencyConflict(err)
	case err != nil:
		s.log.WithError(err).WithField("idempotency_key", key).Warn("idempotency store unavailable, continuing without it")
		return "", nil, nil
	case claimed:
		return key, nil, nil
	}

	id, err := uuid.Parse(paymentID)
	if err != nil {
		return "", nil, customError.WrapCacheError(err)
	}

	payment, err := s.GetPayment(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if payment.CustomerID != request.CustomerID {
		return "", nil, customError.NewBusinessError(customError.ErrCodeInvalidRequest,
			"Idempotency-Key was already used for another customer", nil)
	}
	if !payment.Amount.Equal(request.Amount) || payment.Method != method {
		return "", nil, customError.NewBusinessError(customError.ErrCodeInvalidRequest,
			fmt.Sprintf("Idempotency-Key was already used for a %s %s payment",
				payment.Amount.StringFixed(2), payment.Method), nil)
	}

	s.log.WithFields(logrus.Fields{
		"idempotency_key": key,
		"receipt_number":  payment.ReceiptNumber,
	}).Info("payment replayed")
	return "", payment, nil
}

func (s *PaymentService) complete(ctx context.Context, key string, paymentID uuid.UUID) {
	if key == "" {
		return
	}
	if err := s.idempotency.Complete(ctx, key, paymentID.String()); err != nil {
		s.log.WithError(err).WithField("idempotency_key", key).Error("failed to record idempotency key")
	}
}

func (s *PaymentService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.log.WithError(err).WithField("idempotency_key", key).Warn("failed to release idempotency key")
	}
}

// GetPayment returns a single payment.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.repos.Payments.GetByID(ctx, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapPaymentNotFound(paymentID.String())
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return payment, nil
}

// ListCustomerPayments returns a customer's payments, latest first.
func (s *PaymentService) ListCustomerPayments(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.requireCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	payments, err := s.repos.Payments.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return payments, nil
}

// ListPayments returns payments across customers matching filter, latest first.
func (s *PaymentService) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, error) {
	filter, err := normalizePaymentFilter(filter)
	if err != nil {
		return nil, err
	}

	payments, err := s.repos.Payments.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	return payments, nil
}

// PaymentSummary aggregates a customer's payment history and current debt.
func (s *PaymentService) PaymentSummary(ctx context.Context, customerID uuid.UUID) (*domain.PaymentSummary, error) {
	if _, err := s.requireCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	payments, err := s.repos.Payments.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, storeErr(err)
	}

	installments, err := s.repos.Installments.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, storeErr(err)
	}

	summary := &domain.PaymentSummary{
		CustomerID:   customerID,
		TotalPaid:    decimal.Zero,
		PaymentCount: len(payments),
		CurrentDebt:  decimal.Zero,
	}

	for _, p := range payments {
		summary.TotalPaid = summary.TotalPaid.Add(p.Amount)
	}
	if len(payments) > 0 {
		last := payments[0].PaidAt
		summary.LastPaymentAt = &last
	}

	today := s.today()
	for _, inst := range installments {
		if !inst.HasBalance() {
			continue
		}
		summary.CurrentDebt = summary.CurrentDebt.Add(inst.OutstandingBalance)
		if inst.IsOverdue(today) {
			summary.OverdueInstallments++
		} else {
			summary.PendingInstallments++
		}
	}

	return summary, nil
}
