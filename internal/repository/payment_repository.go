package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/credit-engine/internal/domain"
)

const paymentColumns = `id, customer_id, installment_id, purchase_id, receipt_number, amount,
		method, note, paid_at, created_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :customer_id, :installment_id, :purchase_id, :receipt_number, :amount,
			:method, :note, :paid_at, :created_at)
	`

	_, err := conn(ctx, r.db).NamedExecContext(ctx, query, payment)
	return translateError(err)
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var payment domain.Payment
	if err := conn(ctx, r.db).GetContext(ctx, &payment, query, id); err != nil {
		return nil, translateError(err)
	}

	return &payment, nil
}

func (r *paymentRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE customer_id = $1
		ORDER BY paid_at DESC, id
	`

	var payments []*domain.Payment
	if err := conn(ctx, r.db).SelectContext(ctx, &payments, query, customerID); err != nil {
		return nil, translateError(err)
	}

	return payments, nil
}

func (r *paymentRepository) List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, error) {
	query, args := paymentConditions(filter).build(
		`SELECT `+paymentColumns+` FROM payments`,
		"paid_at DESC, id",
		filter.Limit,
	)

	var payments []*domain.Payment
	if err := conn(ctx, r.db).SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, translateError(err)
	}

	return payments, nil
}

func (r *paymentRepository) GetLatest(ctx context.Context, customerID uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE customer_id = $1
		ORDER BY paid_at DESC, id
		LIMIT 1
	`

	var payment domain.Payment
	if err := conn(ctx, r.db).GetContext(ctx, &payment, query, customerID); err != nil {
		return nil, translateError(err)
	}

	return &payment, nil
}
