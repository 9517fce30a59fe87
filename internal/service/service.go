package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/metrics"
	"github.com/segyhp/credit-engine/internal/repository"
	customError "github.com/segyhp/credit-engine/pkg/errors"
	"github.com/segyhp/credit-engine/pkg/utils"
)

// Repositories bundles the persistence collaborators the services share.
type Repositories struct {
	Tx           repository.TxManager
	Customers    repository.CustomerRepository
	Products     repository.ProductRepository
	Purchases    repository.PurchaseRepository
	Installments repository.InstallmentRepository
	Payments     repository.PaymentRepository
	Statuses     repository.AccountStatusRepository
}

// StatusCache caches account statuses for readers. A nil StatusCache disables caching.
// Get reports the generation a later Set must present; Set is a no-op once the
// customer has been invalidated past that generation.
type StatusCache interface {
	Get(ctx context.Context, customerID uuid.UUID) (status *domain.AccountStatus, generation int64, err error)
	Set(ctx context.Context, status *domain.AccountStatus, generation int64) error
	Invalidate(ctx context.Context, customerID uuid.UUID) error
}

// IdempotencyStore deduplicates payment submissions. A nil store disables deduplication.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (paymentID string, claimed bool, err error)
	Complete(ctx context.Context, key, paymentID string) error
	Release(ctx context.Context, key string) error
}

// Option customizes a service.
type Option func(*base)

// WithClock replaces time.Now, mostly for tests pinning "today".
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

// base carries what every service needs.
type base struct {
	repos   Repositories
	config  *config.Config
	log     *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func newBase(repos Repositories, cfg *config.Config, log *logrus.Logger, opts []Option) base {
	b := base{repos: repos, config: cfg, log: log, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// today is the current calendar date in the configured business timezone.
func (b *base) today() time.Time {
	return utils.DateOnly(b.now().In(b.config.GetLocation()))
}

// lockCustomer loads and locks the customer row; it is always the first lock taken.
func (b *base) lockCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, err := b.repos.Customers.GetForUpdate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapCustomerNotFound(id.String())
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return customer, nil
}

// requireCustomer checks the customer exists without locking it.
func (b *base) requireCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, err := b.repos.Customers.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapCustomerNotFound(id.String())
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return customer, nil
}

// storeErr converts a repository failure into the business error taxonomy.
func storeErr(err error) error {
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return customError.WrapConcurrencyConflict(err)
	}
	return customError.WrapDatabaseError(err)
}
