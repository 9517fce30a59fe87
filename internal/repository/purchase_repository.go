package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/credit-engine/internal/domain"
)

const purchaseColumns = `id, customer_id, purchase_number, total_amount, installment_count,
		monthly_amount, status, note, purchased_at, created_at, updated_at`

type purchaseRepository struct {
	db *sqlx.DB
}

func NewPurchaseRepository(db *sqlx.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (` + purchaseColumns + `)
		VALUES (:id, :customer_id, :purchase_number, :total_amount, :installment_count,
			:monthly_amount, :status, :note, :purchased_at, :created_at, :updated_at)
	`

	q := conn(ctx, r.db)
	if _, err := q.NamedExecContext(ctx, query, purchase); err != nil {
		return translateError(err)
	}

	itemQuery := `
		INSERT INTO purchase_items (id, purchase_id, product_id, quantity, unit_price, subtotal)
		VALUES (:id, :purchase_id, :product_id, :quantity, :unit_price, :subtotal)
	`

	for _, item := range purchase.Items {
		if _, err := q.NamedExecContext(ctx, itemQuery, item); err != nil {
			return translateError(err)
		}
	}

	return nil
}

func (r *purchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	q := conn(ctx, r.db)

	var purchase domain.Purchase
	if err := q.GetContext(ctx, &purchase, query, id); err != nil {
		return nil, translateError(err)
	}

	itemQuery := `
		SELECT id, purchase_id, product_id, quantity, unit_price, subtotal
		FROM purchase_items
		WHERE purchase_id = $1
		ORDER BY id
	`
	if err := q.SelectContext(ctx, &purchase.Items, itemQuery, id); err != nil {
		return nil, translateError(err)
	}

	return &purchase, nil
}

func (r *purchaseRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE customer_id = $1
		ORDER BY purchased_at DESC, id
	`

	var purchases []*domain.Purchase
	if err := conn(ctx, r.db).SelectContext(ctx, &purchases, query, customerID); err != nil {
		return nil, translateError(err)
	}

	return purchases, nil
}

func (r *purchaseRepository) List(ctx context.Context, filter domain.PurchaseFilter) ([]*domain.Purchase, error) {
	query, args := purchaseConditions(filter).build(
		`SELECT `+purchaseColumns+` FROM purchases`,
		"purchased_at DESC, id",
		filter.Limit,
	)

	var purchases []*domain.Purchase
	if err := conn(ctx, r.db).SelectContext(ctx, &purchases, query, args...); err != nil {
		return nil, translateError(err)
	}

	return purchases, nil
}

func (r *purchaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE purchases
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return translateError(err)
	}

	return expectOneRow(result)
}
