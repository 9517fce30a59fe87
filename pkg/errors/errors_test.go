package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "not found",
			err:      WrapCustomerNotFound("c-1"),
			expected: KindNotFound,
		},
		{
			name:     "rule violation",
			err:      WrapCreditExceeded(decimal.NewFromInt(10), decimal.NewFromInt(20)),
			expected: KindBusinessRule,
		},
		{
			name:     "conflict",
			err:      WrapConcurrencyConflict(stderrors.New("40001")),
			expected: KindConflict,
		},
		{
			name:     "database error is internal",
			err:      WrapDatabaseError(sql.ErrConnDone),
			expected: KindInternal,
		},
		{
			name:     "wrapped business error keeps its kind",
			err:      fmt.Errorf("create purchase: %w", WrapProductNotFound("p-1")),
			expected: KindNotFound,
		},
		{
			name:     "plain error is internal",
			err:      stderrors.New("boom"),
			expected: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	notFound := WrapPurchaseNotFound("p-9")
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsRuleViolation(notFound))
	assert.False(t, IsConflict(notFound))

	rule := NewBusinessError(ErrCodeStalePrice, "price changed", nil)
	assert.True(t, IsRuleViolation(rule))
	assert.False(t, IsNotFound(rule))

	conflict := WrapConcurrencyConflict(stderrors.New("deadlock detected"))
	assert.True(t, IsConflict(conflict))
	assert.Equal(t, ErrCodeConcurrencyConflict, CodeOf(conflict))

	assert.True(t, stderrors.Is(WrapDatabaseError(sql.ErrNoRows), sql.ErrNoRows))
	assert.True(t, stderrors.Is(WrapInternal(ErrCodeSplitMismatch, "sum differs"), ErrInternal))
}

func TestBusinessError_Error(t *testing.T) {
	err := WrapCreditExceeded(decimal.RequireFromString("50.5"), decimal.NewFromInt(100))
	assert.Equal(t, "CREDIT_EXCEEDED: Insufficient credit. Available: 50.50, required: 100.00", err.Error())

	wrapped := WrapDatabaseError(stderrors.New("connection reset"))
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.Equal(t, "", CodeOf(stderrors.New("plain")))
}
