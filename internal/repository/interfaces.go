package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/credit-engine/internal/domain"
)

// Lookups return sql.ErrNoRows when the row does not exist, whatever the backend.

// TxManager runs fn inside one atomic transaction. Repository calls made with
// the context passed to fn join that transaction; fn returning an error rolls
// everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	// GetByID retrieves a customer without locking
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	// GetForUpdate retrieves a customer and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	// UpdateAvailableCredit overwrites the cached available credit
	UpdateAvailableCredit(ctx context.Context, id uuid.UUID, available decimal.Decimal) error

	// Create inserts a customer; ErrDuplicateKey when the email is taken
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByEmail retrieves a customer by its normalized email
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)

	// SetActive flips the soft-delete flag
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// ProductRepository is the catalog the purchase flow reads prices and stock from
type ProductRepository interface {
	// GetByID retrieves a product whether active or not; callers check Active
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// DecrementStock removes quantity from stock; ErrInsufficientStock when it would go negative
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

// PurchaseRepository defines the interface for purchase data operations
type PurchaseRepository interface {
	// Create inserts the purchase and its line items; ErrDuplicateKey on a purchase number clash
	Create(ctx context.Context, purchase *domain.Purchase) error

	// GetByID retrieves a purchase with its line items
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)

	// ListByCustomer retrieves a customer's purchases, newest first
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Purchase, error)

	// List retrieves purchases matching filter, newest first, without line items
	List(ctx context.Context, filter domain.PurchaseFilter) ([]*domain.Purchase, error)

	// UpdateStatus sets the purchase status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// InstallmentRepository defines the interface for payment plan operations
type InstallmentRepository interface {
	// CreateBatch inserts a purchase's installments
	CreateBatch(ctx context.Context, installments []*domain.Installment) error

	// ListByPurchase retrieves a purchase's installments ordered by sequence number
	ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]*domain.Installment, error)

	// ListByCustomer retrieves every installment of a customer ordered by due date
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Installment, error)

	// ListOutstandingForUpdate locks and returns a customer's installments with a positive balance
	ListOutstandingForUpdate(ctx context.Context, customerID uuid.UUID) ([]*domain.Installment, error)

	// UpdateBalance persists amount paid, outstanding balance and status
	UpdateBalance(ctx context.Context, installment *domain.Installment) error

	// MarkOverdue flips unpaid PENDING installments due before today to OVERDUE and returns how many changed
	MarkOverdue(ctx context.Context, today time.Time) (int, error)

	// CustomersWithOverdue returns the customers holding at least one OVERDUE installment
	CustomersWithOverdue(ctx context.Context) ([]uuid.UUID, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record; ErrDuplicateKey on a receipt number clash
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// ListByCustomer retrieves a customer's payments, latest first
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error)

	// List retrieves payments matching filter, latest first
	List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, error)

	// GetLatest gets the most recent payment of a customer
	GetLatest(ctx context.Context, customerID uuid.UUID) (*domain.Payment, error)
}

// AccountStatusRepository stores the derived account status projection
type AccountStatusRepository interface {
	// Get retrieves a customer's status
	Get(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, error)

	// Upsert overwrites a customer's status
	Upsert(ctx context.Context, status *domain.AccountStatus) error

	// ListByClassification retrieves statuses with the given classification
	ListByClassification(ctx context.Context, classification string) ([]*domain.AccountStatus, error)
}
