package utils

import (
	"fmt"

	"github.com/shopspring/decimal"

	customError "github.com/segyhp/credit-engine/pkg/errors"
)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// SplitExact divides total into n installment amounts that sum to total exactly.
// Every amount is floor(total/n) to the cent; the leftover cents go one each to
// the first installments, so no two amounts differ by more than 0.01. Every
// installment gets at least one cent.
func SplitExact(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, customError.NewBusinessError(
			customError.ErrCodeInvalidInstallments,
			"installment count must be at least 1",
			nil,
		)
	}
	if !total.IsPositive() {
		return nil, customError.NewBusinessError(
			customError.ErrCodeInvalidAmount,
			"amount to split must be greater than zero",
			nil,
		)
	}

	totalCents := total.Mul(hundred)
	if !totalCents.Equal(totalCents.Truncate(0)) {
		return nil, customError.NewBusinessError(
			customError.ErrCodeInvalidAmount,
			"amount to split has sub-cent precision: "+total.String(),
			nil,
		)
	}

	if totalCents.LessThan(decimal.NewFromInt(int64(n))) {
		return nil, customError.NewBusinessError(
			customError.ErrCodeInvalidInstallments,
			fmt.Sprintf("%s cannot be split into %d installments of at least 0.01", total.StringFixed(2), n),
			nil,
		)
	}

	count := decimal.NewFromInt(int64(n))
	baseCents := totalCents.Div(count).Floor()
	remainder := totalCents.Sub(baseCents.Mul(count)).IntPart()
	base := baseCents.Div(hundred)

	amounts := make([]decimal.Decimal, n)
	for i := range amounts {
		if int64(i) < remainder {
			amounts[i] = base.Add(cent)
		} else {
			amounts[i] = base
		}
	}

	if sum := SumDecimals(amounts); !sum.Equal(total) {
		return nil, customError.WrapInternal(
			customError.ErrCodeSplitMismatch,
			"installment split "+sum.String()+" does not reconcile with total "+total.String(),
		)
	}

	return amounts, nil
}

// SumDecimals adds up values.
func SumDecimals(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum
}

// RoundMoney rounds half away from zero to whole cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
