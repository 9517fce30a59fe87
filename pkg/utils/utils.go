package utils

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PurchaseNumberPrefix = "CMP"
	ReceiptNumberPrefix  = "REC"
)

// GeneratePurchaseNumber builds a human-facing purchase number such as CMP-20240110-1F3A9C0B.
func GeneratePurchaseNumber(now time.Time) string {
	return generateNumber(PurchaseNumberPrefix, now)
}

// GenerateReceiptNumber builds a human-facing receipt number such as REC-20240110-77D0E2A1.
func GenerateReceiptNumber(now time.Time) string {
	return generateNumber(ReceiptNumberPrefix, now)
}

// The random suffix keeps collisions unlikely, not impossible; unique
// constraints in storage catch the rest and the caller retries.
func generateNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return prefix + "-" + now.Format("20060102") + "-" + suffix
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
