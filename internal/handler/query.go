package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/credit-engine/internal/domain"
)

const dateLayout = "2006-01-02"

// queryParser collects the first malformed parameter of a listing query.
type queryParser struct {
	values url.Values
	err    error
}

func (q *queryParser) fail(name, raw string, err error) {
	if q.err == nil {
		q.err = fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
}

func (q *queryParser) id(name string) *uuid.UUID {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	return &id
}

func (q *queryParser) amount(name string) *decimal.Decimal {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	return &d
}

// instant accepts RFC 3339 or a bare date. A bare "to" date covers that whole day.
func (q *queryParser) instant(name string, endOfDay bool) *time.Time {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		q.fail(name, raw, err)
		return nil
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t
}

func (q *queryParser) number(name string) int {
	raw := q.values.Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, raw, err)
		return 0
	}
	return n
}

func parsePurchaseFilter(values url.Values) (domain.PurchaseFilter, error) {
	q := &queryParser{values: values}
	filter := domain.PurchaseFilter{
		CustomerID: q.id("customer_id"),
		From:       q.instant("from", false),
		To:         q.instant("to", true),
		MinAmount:  q.amount("min_amount"),
		MaxAmount:  q.amount("max_amount"),
		Status:     values.Get("status"),
		Limit:      q.number("limit"),
	}
	return filter, q.err
}

func parsePaymentFilter(values url.Values) (domain.PaymentFilter, error) {
	q := &queryParser{values: values}
	filter := domain.PaymentFilter{
		CustomerID: q.id("customer_id"),
		From:       q.instant("from", false),
		To:         q.instant("to", true),
		MinAmount:  q.amount("min_amount"),
		MaxAmount:  q.amount("max_amount"),
		Method:     values.Get("method"),
		Limit:      q.number("limit"),
	}
	return filter, q.err
}
