package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/credit-engine/internal/domain"
)

type accountStatusRepository struct {
	db *sqlx.DB
}

func NewAccountStatusRepository(db *sqlx.DB) AccountStatusRepository {
	return &accountStatusRepository{db: db}
}

func (r *accountStatusRepository) Get(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, error) {
	query := `
		SELECT customer_id, classification, total_debt, overdue_count, max_days_overdue, last_payment_at, updated_at
		FROM account_statuses
		WHERE customer_id = $1
	`

	var status domain.AccountStatus
	if err := conn(ctx, r.db).GetContext(ctx, &status, query, customerID); err != nil {
		return nil, translateError(err)
	}

	return &status, nil
}

func (r *accountStatusRepository) Upsert(ctx context.Context, status *domain.AccountStatus) error {
	query := `
		INSERT INTO account_statuses (customer_id, classification, total_debt, overdue_count, max_days_overdue, last_payment_at, updated_at)
		VALUES (:customer_id, :classification, :total_debt, :overdue_count, :max_days_overdue, :last_payment_at, :updated_at)
		ON CONFLICT (customer_id) DO UPDATE SET
			classification   = EXCLUDED.classification,
			total_debt       = EXCLUDED.total_debt,
			overdue_count    = EXCLUDED.overdue_count,
			max_days_overdue = EXCLUDED.max_days_overdue,
			last_payment_at  = EXCLUDED.last_payment_at,
			updated_at       = EXCLUDED.updated_at
	`

	_, err := conn(ctx, r.db).NamedExecContext(ctx, query, status)
	return translateError(err)
}

func (r *accountStatusRepository) ListByClassification(ctx context.Context, classification string) ([]*domain.AccountStatus, error) {
	query := `
		SELECT s.customer_id, s.classification, s.total_debt, s.overdue_count, s.max_days_overdue, s.last_payment_at, s.updated_at
		FROM account_statuses s
		JOIN customers c ON c.id = s.customer_id
		WHERE s.classification = $1 AND c.active = TRUE
		ORDER BY s.max_days_overdue DESC, s.customer_id
	`

	var statuses []*domain.AccountStatus
	if err := conn(ctx, r.db).SelectContext(ctx, &statuses, query, classification); err != nil {
		return nil, translateError(err)
	}

	return statuses, nil
}
