package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/credit-engine/internal/domain"
	"github.com/segyhp/credit-engine/internal/repository"
)

type customerRepo struct{ s *Store }

func (r *customerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.s.do(ctx, func() error {
		c, ok := r.s.customers[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = cloneCustomer(c)
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: a transaction already owns the whole store.
func (r *customerRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return r.GetByID(ctx, id)
}

func (r *customerRepo) UpdateAvailableCredit(ctx context.Context, id uuid.UUID, available decimal.Decimal) error {
	return r.s.do(ctx, func() error {
		c, ok := r.s.customers[id]
		if !ok {
			return sql.ErrNoRows
		}
		c.AvailableCredit = available
		c.UpdatedAt = time.Now()
		return nil
	})
}

func (r *customerRepo) Create(ctx context.Context, customer *domain.Customer) error {
	return r.s.do(ctx, func() error {
		if _, ok := r.s.customers[customer.ID]; ok {
			return repository.ErrDuplicateKey
		}
		for _, c := range r.s.customers {
			if c.Email == customer.Email {
				return repository.ErrDuplicateKey
			}
		}
		r.s.customers[customer.ID] = cloneCustomer(customer)
		return nil
	})
}

func (r *customerRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.s.do(ctx, func() error {
		for _, c := range r.s.customers {
			if c.Email == email {
				out = cloneCustomer(c)
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

func (r *customerRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.s.do(ctx, func() error {
		c, ok := r.s.customers[id]
		if !ok {
			return sql.ErrNoRows
		}
		c.Active = active
		c.UpdatedAt = time.Now()
		return nil
	})
}

type productRepo struct{ s *Store }

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var out *domain.Product
	err := r.s.do(ctx, func() error {
		p, ok := r.s.products[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.s.do(ctx, func() error {
		p, ok := r.s.products[id]
		if !ok || !p.Active || p.Stock < quantity {
			return repository.ErrInsufficientStock
		}
		p.Stock -= quantity
		return nil
	})
}

type purchaseRepo struct{ s *Store }

func (r *purchaseRepo) Create(ctx context.Context, purchase *domain.Purchase) error {
	return r.s.do(ctx, func() error {
		if _, ok := r.s.purchases[purchase.ID]; ok {
			return repository.ErrDuplicateKey
		}
		for _, p := range r.s.purchases {
			if p.PurchaseNumber == purchase.PurchaseNumber {
				return repository.ErrDuplicateKey
			}
		}
		r.s.purchases[purchase.ID] = clonePurchase(purchase)
		return nil
	})
}

func (r *purchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	var out *domain.Purchase
	err := r.s.do(ctx, func() error {
		p, ok := r.s.purchases[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = clonePurchase(p)
		return nil
	})
	return out, err
}

func (r *purchaseRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Purchase, error) {
	var out []*domain.Purchase
	err := r.s.do(ctx, func() error {
		for _, p := range r.s.purchases {
			if p.CustomerID == customerID {
				cp := clonePurchase(p)
				cp.Items = nil
				out = append(out, cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].PurchasedAt.After(out[j].PurchasedAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, err
}

func (r *purchaseRepo) List(ctx context.Context, filter domain.PurchaseFilter) ([]*domain.Purchase, error) {
	var out []*domain.Purchase
	err := r.s.do(ctx, func() error {
		for _, p := range r.s.purchases {
			if matchPurchase(p, filter) {
				cp := clonePurchase(p)
				cp.Items = nil
				out = append(out, cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].PurchasedAt.After(out[j].PurchasedAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return truncate(out, filter.Limit), err
}

func matchPurchase(p *domain.Purchase, f domain.PurchaseFilter) bool {
	switch {
	case f.CustomerID != nil && p.CustomerID != *f.CustomerID:
		return false
	case f.From != nil && p.PurchasedAt.Before(*f.From):
		return false
	case f.To != nil && !p.PurchasedAt.Before(*f.To):
		return false
	case f.MinAmount != nil && p.TotalAmount.LessThan(*f.MinAmount):
		return false
	case f.MaxAmount != nil && p.TotalAmount.GreaterThan(*f.MaxAmount):
		return false
	case f.Status != "" && p.Status != f.Status:
		return false
	}
	return true
}

func (r *purchaseRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.s.do(ctx, func() error {
		p, ok := r.s.purchases[id]
		if !ok {
			return sql.ErrNoRows
		}
		p.Status = status
		p.UpdatedAt = time.Now()
		return nil
	})
}

type installmentRepo struct{ s *Store }

func (r *installmentRepo) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	return r.s.do(ctx, func() error {
		for _, inst := range installments {
			for _, existing := range r.s.installments {
				if existing.PurchaseID == inst.PurchaseID && existing.SequenceNumber == inst.SequenceNumber {
					return repository.ErrDuplicateKey
				}
			}
			r.s.installments[inst.ID] = cloneInstallment(inst)
		}
		return nil
	})
}

func (r *installmentRepo) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]*domain.Installment, error) {
	out, err := r.filter(ctx, func(i *domain.Installment) bool { return i.PurchaseID == purchaseID })
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, err
}

func (r *installmentRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Installment, error) {
	out, err := r.filter(ctx, func(i *domain.Installment) bool { return i.CustomerID == customerID })
	sortByDueDate(out)
	return out, err
}

func (r *installmentRepo) ListOutstandingForUpdate(ctx context.Context, customerID uuid.UUID) ([]*domain.Installment, error) {
	out, err := r.filter(ctx, func(i *domain.Installment) bool {
		return i.CustomerID == customerID && i.HasBalance()
	})
	sortByDueDate(out)
	return out, err
}

func (r *installmentRepo) UpdateBalance(ctx context.Context, installment *domain.Installment) error {
	return r.s.do(ctx, func() error {
		inst, ok := r.s.installments[installment.ID]
		if !ok {
			return sql.ErrNoRows
		}
		inst.AmountPaid = installment.AmountPaid
		inst.OutstandingBalance = installment.OutstandingBalance
		inst.Status = installment.Status
		inst.UpdatedAt = time.Now()
		return nil
	})
}

func (r *installmentRepo) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	changed := 0
	err := r.s.do(ctx, func() error {
		for _, inst := range r.s.installments {
			if inst.Status == domain.InstallmentStatusPending && inst.HasBalance() && inst.DueDate.Before(today) {
				inst.Status = domain.InstallmentStatusOverdue
				inst.UpdatedAt = time.Now()
				changed++
			}
		}
		return nil
	})
	return changed, err
}

func (r *installmentRepo) CustomersWithOverdue(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.s.do(ctx, func() error {
		seen := make(map[uuid.UUID]bool)
		for _, inst := range r.s.installments {
			if inst.Status != domain.InstallmentStatusOverdue || !inst.HasBalance() || seen[inst.CustomerID] {
				continue
			}
			if c, ok := r.s.customers[inst.CustomerID]; !ok || !c.Active {
				continue
			}
			seen[inst.CustomerID] = true
			ids = append(ids, inst.CustomerID)
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	return ids, err
}

func (r *installmentRepo) filter(ctx context.Context, keep func(*domain.Installment) bool) ([]*domain.Installment, error) {
	var out []*domain.Installment
	err := r.s.do(ctx, func() error {
		for _, inst := range r.s.installments {
			if keep(inst) {
				out = append(out, cloneInstallment(inst))
			}
		}
		return nil
	})
	return out, err
}

func sortByDueDate(list []*domain.Installment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].DueDate.Equal(list[j].DueDate) {
			return list[i].DueDate.Before(list[j].DueDate)
		}
		return lessID(list[i].ID, list[j].ID)
	})
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	return r.s.do(ctx, func() error {
		if _, ok := r.s.payments[payment.ID]; ok {
			return repository.ErrDuplicateKey
		}
		for _, p := range r.s.payments {
			if p.ReceiptNumber == payment.ReceiptNumber {
				return repository.ErrDuplicateKey
			}
		}
		r.s.payments[payment.ID] = clonePayment(payment)
		return nil
	})
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.s.do(ctx, func() error {
		p, ok := r.s.payments[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = clonePayment(p)
		return nil
	})
	return out, err
}

func (r *paymentRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.s.do(ctx, func() error {
		for _, p := range r.s.payments {
			if p.CustomerID == customerID {
				out = append(out, clonePayment(p))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].PaidAt.After(out[j].PaidAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, err
}

func (r *paymentRepo) List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.s.do(ctx, func() error {
		for _, p := range r.s.payments {
			if matchPayment(p, filter) {
				out = append(out, clonePayment(p))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].PaidAt.After(out[j].PaidAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return truncate(out, filter.Limit), err
}

func matchPayment(p *domain.Payment, f domain.PaymentFilter) bool {
	switch {
	case f.CustomerID != nil && p.CustomerID != *f.CustomerID:
		return false
	case f.From != nil && p.PaidAt.Before(*f.From):
		return false
	case f.To != nil && !p.PaidAt.Before(*f.To):
		return false
	case f.Method != "" && p.Method != f.Method:
		return false
	case f.MinAmount != nil && p.Amount.LessThan(*f.MinAmount):
		return false
	case f.MaxAmount != nil && p.Amount.GreaterThan(*f.MaxAmount):
		return false
	}
	return true
}

// truncate applies a listing limit; zero means unlimited.
func truncate[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

func (r *paymentRepo) GetLatest(ctx context.Context, customerID uuid.UUID) (*domain.Payment, error) {
	payments, err := r.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, sql.ErrNoRows
	}
	return payments[0], nil
}

type accountStatusRepo struct{ s *Store }

func (r *accountStatusRepo) Get(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, error) {
	var out *domain.AccountStatus
	err := r.s.do(ctx, func() error {
		st, ok := r.s.statuses[customerID]
		if !ok {
			return sql.ErrNoRows
		}
		out = cloneStatus(st)
		return nil
	})
	return out, err
}

func (r *accountStatusRepo) Upsert(ctx context.Context, status *domain.AccountStatus) error {
	return r.s.do(ctx, func() error {
		r.s.statuses[status.CustomerID] = cloneStatus(status)
		return nil
	})
}

func (r *accountStatusRepo) ListByClassification(ctx context.Context, classification string) ([]*domain.AccountStatus, error) {
	var out []*domain.AccountStatus
	err := r.s.do(ctx, func() error {
		for id, st := range r.s.statuses {
			if st.Classification != classification {
				continue
			}
			if c, ok := r.s.customers[id]; !ok || !c.Active {
				continue
			}
			out = append(out, cloneStatus(st))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].MaxDaysOverdue != out[j].MaxDaysOverdue {
			return out[i].MaxDaysOverdue > out[j].MaxDaysOverdue
		}
		return lessID(out[i].CustomerID, out[j].CustomerID)
	})
	return out, err
}
