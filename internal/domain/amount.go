// internal/domain/amount.go
package domain

import (
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of fractional digits kept for money.
	AmountScale = 2
	// MaxCommentLength bounds the free-text comment on a transaction.
	MaxCommentLength = 255

	// Exponent bounds checked before any rescaling, which costs time proportional to the exponent.
	minAmountExponent = -(AmountScale + 16)
	maxAmountExponent = 16
)

// MaxAmount is the largest value a NUMERIC(15, 2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// ValidAmount reports whether amount is positive, has at most two fractional digits
// and fits the storage column. Amounts with extreme exponents are refused without rescaling.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	if exp := amount.Exponent(); exp < minAmountExponent || exp > maxAmountExponent {
		return false
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return false
	}
	return amount.LessThanOrEqual(MaxAmount)
}

// ValidComment reports whether an optional comment fits the column.
func ValidComment(comment *string) bool {
	return comment == nil || utf8.RuneCountInString(*comment) <= MaxCommentLength
}

// ValidUserID reports whether id can identify a user.
func ValidUserID(id int64) bool {
	return id > 0
}

// FormatAmount renders an amount with exactly two fractional digits.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(AmountScale)
}
