package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/credit-engine/internal/domain"
)

const customerColumns = `id, name, email, credit_limit, available_credit, max_installments,
		delinquency_tolerance_days, pay_day, active, created_at, updated_at`

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	var customer domain.Customer
	if err := conn(ctx, r.db).GetContext(ctx, &customer, query, id); err != nil {
		return nil, translateError(err)
	}

	return &customer, nil
}

func (r *customerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

	var customer domain.Customer
	if err := conn(ctx, r.db).GetContext(ctx, &customer, query, id); err != nil {
		return nil, translateError(err)
	}

	return &customer, nil
}

func (r *customerRepository) UpdateAvailableCredit(ctx context.Context, id uuid.UUID, available decimal.Decimal) error {
	query := `
		UPDATE customers
		SET available_credit = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, available, time.Now())
	if err != nil {
		return translateError(err)
	}

	return expectOneRow(result)
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES (:id, :name, :email, :credit_limit, :available_credit, :max_installments,
			:delinquency_tolerance_days, :pay_day, :active, :created_at, :updated_at)
	`

	_, err := conn(ctx, r.db).NamedExecContext(ctx, query, customer)
	return translateError(err)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`

	var customer domain.Customer
	if err := conn(ctx, r.db).GetContext(ctx, &customer, query, email); err != nil {
		return nil, translateError(err)
	}

	return &customer, nil
}

func (r *customerRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE customers
		SET active = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, active, time.Now())
	if err != nil {
		return translateError(err)
	}

	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
