package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/credit-engine/internal/domain"
)

const installmentColumns = `id, purchase_id, customer_id, sequence_number, due_date, scheduled_amount,
		amount_paid, outstanding_balance, status, created_at, updated_at`

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []*domain.Installment) error {
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		VALUES (:id, :purchase_id, :customer_id, :sequence_number, :due_date, :scheduled_amount,
			:amount_paid, :outstanding_balance, :status, :created_at, :updated_at)
	`

	q := conn(ctx, r.db)
	for _, installment := range installments {
		if _, err := q.NamedExecContext(ctx, query, installment); err != nil {
			return translateError(err)
		}
	}

	return nil
}

func (r *installmentRepository) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE purchase_id = $1
		ORDER BY sequence_number
	`

	var installments []*domain.Installment
	if err := conn(ctx, r.db).SelectContext(ctx, &installments, query, purchaseID); err != nil {
		return nil, translateError(err)
	}

	return installments, nil
}

func (r *installmentRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE customer_id = $1
		ORDER BY due_date, id
	`

	var installments []*domain.Installment
	if err := conn(ctx, r.db).SelectContext(ctx, &installments, query, customerID); err != nil {
		return nil, translateError(err)
	}

	return installments, nil
}

func (r *installmentRepository) ListOutstandingForUpdate(ctx context.Context, customerID uuid.UUID) ([]*domain.Installment, error) {
	// Rows are locked in (due_date, id) order so concurrent payers never deadlock on each other.
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE customer_id = $1 AND outstanding_balance > 0
		ORDER BY due_date, id
		FOR UPDATE
	`

	var installments []*domain.Installment
	if err := conn(ctx, r.db).SelectContext(ctx, &installments, query, customerID); err != nil {
		return nil, translateError(err)
	}

	return installments, nil
}

func (r *installmentRepository) UpdateBalance(ctx context.Context, installment *domain.Installment) error {
	query := `
		UPDATE installments
		SET amount_paid = $2, outstanding_balance = $3, status = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		installment.ID,
		installment.AmountPaid,
		installment.OutstandingBalance,
		installment.Status,
		time.Now(),
	)
	if err != nil {
		return translateError(err)
	}

	return expectOneRow(result)
}

func (r *installmentRepository) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	query := `
		UPDATE installments
		SET status = 'OVERDUE', updated_at = $2
		WHERE status = 'PENDING' AND outstanding_balance > 0 AND due_date < $1::date
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, today.Format(time.DateOnly), time.Now())
	if err != nil {
		return 0, translateError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(n), nil
}

func (r *installmentRepository) CustomersWithOverdue(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT i.customer_id
		FROM installments i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.status = 'OVERDUE' AND i.outstanding_balance > 0 AND c.active = TRUE
		ORDER BY i.customer_id
	`

	var ids []uuid.UUID
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, query); err != nil {
		return nil, translateError(err)
	}

	return ids, nil
}
