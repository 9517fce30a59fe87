// Package memory is an in-process implementation of the repository interfaces.
// A transaction holds the store mutex for its whole duration and restores a
// snapshot when it fails, so it gives the same atomicity and per-customer
// serialization as the Postgres backend, only coarser.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/repository"
)

type txKey struct{}

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	customers    map[uuid.UUID]*domain.Customer
	products     map[uuid.UUID]*domain.Product
	purchases    map[uuid.UUID]*domain.Purchase
	installments map[uuid.UUID]*domain.Installment
	payments     map[uuid.UUID]*domain.Payment
	statuses     map[uuid.UUID]*domain.AccountStatus
}

func NewStore() *Store {
	return &Store{
		customers:    make(map[uuid.UUID]*domain.Customer),
		products:     make(map[uuid.UUID]*domain.Product),
		purchases:    make(map[uuid.UUID]*domain.Purchase),
		installments: make(map[uuid.UUID]*domain.Installment),
		payments:     make(map[uuid.UUID]*domain.Payment),
		statuses:     make(map[uuid.UUID]*domain.AccountStatus),
	}
}

func (s *Store) TxManager() repository.TxManager                     { return &txManager{s: s} }
func (s *Store) Customers() repository.CustomerRepository            { return &customerRepo{s: s} }
func (s *Store) Products() repository.ProductRepository              { return &productRepo{s: s} }
func (s *Store) Purchases() repository.PurchaseRepository            { return &purchaseRepo{s: s} }
func (s *Store) Installments() repository.InstallmentRepository      { return &installmentRepo{s: s} }
func (s *Store) Payments() repository.PaymentRepository              { return &paymentRepo{s: s} }
func (s *Store) AccountStatuses() repository.AccountStatusRepository { return &accountStatusRepo{s: s} }

// AddCustomer seeds a customer.
func (s *Store) AddCustomer(c *domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = cloneCustomer(c)
}

// AddProduct seeds a catalog product.
func (s *Store) AddProduct(p *domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = cloneProduct(p)
}

// AddInstallment seeds an installment outside of any purchase flow.
func (s *Store) AddInstallment(i *domain.Installment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installments[i.ID] = cloneInstallment(i)
}

// do runs fn under the store mutex unless ctx already belongs to a transaction holding it.
func (s *Store) do(ctx context.Context, fn func() error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

type snapshot struct {
	customers    map[uuid.UUID]*domain.Customer
	products     map[uuid.UUID]*domain.Product
	purchases    map[uuid.UUID]*domain.Purchase
	installments map[uuid.UUID]*domain.Installment
	payments     map[uuid.UUID]*domain.Payment
	statuses     map[uuid.UUID]*domain.AccountStatus
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		customers:    cloneMap(s.customers, cloneCustomer),
		products:     cloneMap(s.products, cloneProduct),
		purchases:    cloneMap(s.purchases, clonePurchase),
		installments: cloneMap(s.installments, cloneInstallment),
		payments:     cloneMap(s.payments, clonePayment),
		statuses:     cloneMap(s.statuses, cloneStatus),
	}
}

func (s *Store) restore(snap snapshot) {
	s.customers = snap.customers
	s.products = snap.products
	s.purchases = snap.purchases
	s.installments = snap.installments
	s.payments = snap.payments
	s.statuses = snap.statuses
}

type txManager struct {
	s *Store
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == m.s {
		return fn(ctx)
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	snap := m.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, m.s)); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

func cloneMap[T any](in map[uuid.UUID]*T, clone func(*T) *T) map[uuid.UUID]*T {
	out := make(map[uuid.UUID]*T, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func cloneCustomer(c *domain.Customer) *domain.Customer { cp := *c; return &cp }
func cloneProduct(p *domain.Product) *domain.Product    { cp := *p; return &cp }
func clonePayment(p *domain.Payment) *domain.Payment    { cp := *p; return &cp }

func cloneInstallment(i *domain.Installment) *domain.Installment { cp := *i; return &cp }

func cloneStatus(st *domain.AccountStatus) *domain.AccountStatus {
	cp := *st
	if st.LastPaymentAt != nil {
		t := *st.LastPaymentAt
		cp.LastPaymentAt = &t
	}
	return &cp
}

func clonePurchase(p *domain.Purchase) *domain.Purchase {
	cp := *p
	cp.Installments = nil
	cp.Items = make([]*domain.LineItem, len(p.Items))
	for i, item := range p.Items {
		it := *item
		cp.Items[i] = &it
	}
	return &cp
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
