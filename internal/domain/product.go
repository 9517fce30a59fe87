package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog view the credit engine needs: current price, stock and the soft-delete flag.
type Product struct {
	ID     uuid.UUID       `json:"id" db:"id"`
	Code   string          `json:"code" db:"code"`
	Name   string          `json:"name" db:"name"`
	Price  decimal.Decimal `json:"price" db:"price"`
	Stock  int             `json:"stock" db:"stock"`
	Active bool            `json:"active" db:"active"`
}
