package repository

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/credit-engine/internal/domain"
)

// conditions collects optional WHERE clauses written with ? placeholders.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, arg interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, arg)
}

// build appends the WHERE clause, ordering and limit to base and rebinds it for Postgres.
func (c *conditions) build(base, orderBy string, limit int) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(base)
	if len(c.clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(c.clauses, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy)

	args := c.args
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	return sqlx.Rebind(sqlx.DOLLAR, b.String()), args
}

func purchaseConditions(f domain.PurchaseFilter) *conditions {
	c := &conditions{}
	if f.CustomerID != nil {
		c.add("customer_id = ?", *f.CustomerID)
	}
	if f.From != nil {
		c.add("purchased_at >= ?", *f.From)
	}
	if f.To != nil {
		c.add("purchased_at < ?", *f.To)
	}
	if f.MinAmount != nil {
		c.add("total_amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		c.add("total_amount <= ?", *f.MaxAmount)
	}
	if f.Status != "" {
		c.add("status = ?", f.Status)
	}
	return c
}

func paymentConditions(f domain.PaymentFilter) *conditions {
	c := &conditions{}
	if f.CustomerID != nil {
		c.add("customer_id = ?", *f.CustomerID)
	}
	if f.From != nil {
		c.add("paid_at >= ?", *f.From)
	}
	if f.To != nil {
		c.add("paid_at < ?", *f.To)
	}
	if f.Method != "" {
		c.add("method = ?", f.Method)
	}
	if f.MinAmount != nil {
		c.add("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		c.add("amount <= ?", *f.MaxAmount)
	}
	return c
}
