package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/domain"
	customError "github.com/segyhp/credit-engine/pkg/errors"
	"github.com/segyhp/credit-engine/pkg/utils"
)

const sweepConcurrency = 4

// DeriveAccountStatus computes a customer's status from its installments.
// It is the only way an AccountStatus is produced.
func DeriveAccountStatus(customer *domain.Customer, installments []*domain.Installment, lastPaymentAt *time.Time, today time.Time) *domain.AccountStatus {
	status := domain.NewAccountStatus(customer.ID)
	status.LastPaymentAt = lastPaymentAt

	for _, inst := range installments {
		if !inst.HasBalance() {
			continue
		}
		status.TotalDebt = status.TotalDebt.Add(inst.OutstandingBalance)

		if inst.IsOverdue(today) {
			status.OverdueCount++
			status.MaxDaysOverdue = max(status.MaxDaysOverdue, utils.DaysOverdue(inst.DueDate, today))
		}
	}

	switch {
	case status.MaxDaysOverdue > customer.DelinquencyToleranceDays:
		status.Classification = domain.ClassificationDelinquent
	case status.OverdueCount > 0:
		status.Classification = domain.ClassificationAtRisk
	default:
		status.Classification = domain.ClassificationCompliant
	}

	return status
}

// SweepResult reports what one overdue sweep did.
type SweepResult struct {
	Marked       int
	Recalculated int
	Failed       int
}

type AccountService struct {
	base
	cache StatusCache
}

func NewAccountService(repos Repositories, cache StatusCache, cfg *config.Config, log *logrus.Logger, opts ...Option) *AccountService {
	return &AccountService{base: newBase(repos, cfg, log, opts), cache: cache}
}

// Recalculate rederives and stores a customer's status under the customer lock.
func (s *AccountService) Recalculate(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, error) {
	var status *domain.AccountStatus

	err := s.withRetry(ctx, "recalculate", func() error {
		return s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			customer, err := s.lockCustomer(ctx, customerID)
			if err != nil {
				return err
			}

			status, err = s.recalculate(ctx, customer, s.today())
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, customerID)
	return status, nil
}

// recalculate runs inside the caller's transaction; the caller invalidates the cache after commit.
func (s *AccountService) recalculate(ctx context.Context, customer *domain.Customer, today time.Time) (*domain.AccountStatus, error) {
	status, err := s.derive(ctx, customer, today)
	if err != nil {
		return nil, err
	}

	status.UpdatedAt = s.now()
	if err := s.repos.Statuses.Upsert(ctx, status); err != nil {
		return nil, storeErr(err)
	}

	return status, nil
}

func (s *AccountService) derive(ctx context.Context, customer *domain.Customer, today time.Time) (*domain.AccountStatus, error) {
	installments, err := s.repos.Installments.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, storeErr(err)
	}

	var lastPaymentAt *time.Time
	latest, err := s.repos.Payments.GetLatest(ctx, customer.ID)
	switch {
	case err == nil:
		lastPaymentAt = &latest.PaidAt
	case !errors.Is(err, sql.ErrNoRows):
		return nil, storeErr(err)
	}

	return DeriveAccountStatus(customer, installments, lastPaymentAt, today), nil
}

// GetAccountStatus returns the stored status, going through the cache when one is configured.
func (s *AccountService) GetAccountStatus(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, error) {
	fill := false
	var generation int64
	if s.cache != nil {
		cached, gen, err := s.cache.Get(ctx, customerID)
		switch {
		case err != nil:
			s.log.WithError(err).WithField("customer_id", customerID).Warn("account status cache read failed")
		case cached != nil:
			return cached, nil
		default:
			fill, generation = true, gen
		}
	}

	customer, err := s.requireCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	status, err := s.repos.Statuses.Get(ctx, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		// never recomputed yet; derive without persisting
		status, err = s.derive(ctx, customer, s.today())
	}
	if err != nil {
		return nil, storeErr(err)
	}

	if fill {
		if err := s.cache.Set(ctx, status, generation); err != nil {
			s.log.WithError(err).WithField("customer_id", customerID).Warn("account status cache write failed")
		}
	}

	return status, nil
}

// ListByClassification returns the statuses of active customers with the given classification.
func (s *AccountService) ListByClassification(ctx context.Context, classification string) ([]*domain.AccountStatus, error) {
	c, ok := domain.ParseClassification(classification)
	if !ok {
		return nil, customError.NewBusinessError(customError.ErrCodeInvalidClassification,
			fmt.Sprintf("Unknown classification %q", classification), nil)
	}

	statuses, err := s.repos.Statuses.ListByClassification(ctx, c)
	if err != nil {
		return nil, storeErr(err)
	}
	return statuses, nil
}

// SweepOverdue flips past-due installments to OVERDUE and recalculates every
// customer holding one, so days overdue and classification advance daily.
// A customer whose recalculation fails is logged and counted, not fatal.
func (s *AccountService) SweepOverdue(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	today := s.today()

	err := s.withRetry(ctx, "sweep_overdue", func() error {
		return s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			marked, err := s.repos.Installments.MarkOverdue(ctx, today)
			if err != nil {
				return err
			}
			result.Marked = marked
			return nil
		})
	})
	if err != nil {
		return result, err
	}
	s.metrics.OverdueMarked(result.Marked)

	customerIDs, err := s.repos.Installments.CustomersWithOverdue(ctx)
	if err != nil {
		return result, storeErr(err)
	}

	var recalculated, failed atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, id := range customerIDs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if _, err := s.Recalculate(gCtx, id); err != nil {
				failed.Add(1)
				s.log.WithError(err).WithField("customer_id", id).Error("overdue sweep recalculation failed")
				return nil
			}
			recalculated.Add(1)
			return nil
		})
	}

	err = g.Wait()
	result.Recalculated = int(recalculated.Load())
	result.Failed = int(failed.Load())

	s.log.WithFields(logrus.Fields{
		"date":         today.Format(time.DateOnly),
		"marked":       result.Marked,
		"recalculated": result.Recalculated,
		"failed":       result.Failed,
	}).Info("overdue sweep finished")

	return result, err
}

func (s *AccountService) invalidate(ctx context.Context, customerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, customerID); err != nil {
		s.log.WithError(err).WithField("customer_id", customerID).Warn("account status cache invalidation failed")
	}
}
