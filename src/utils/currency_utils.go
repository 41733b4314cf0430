package utils

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "R", "", "₹", "")
	leadingNumberRe = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)

	maxQuantity = decimal.NewFromInt(math.MaxInt32)
)

// ParseCurrencyDecimal parses a money cell such as "$1,234.56", "(45.00)" or "-10".
// A leading '-' or '(' marks the value negative. Anything unparseable, or too
// large to be represented as a finite float64, yields zero.
func ParseCurrencyDecimal(value string) decimal.Decimal {
	cleaned := currencySymbols.Replace(value)
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if cleaned == "" {
		return decimal.Zero
	}

	negative := strings.HasPrefix(cleaned, "-") || strings.HasPrefix(cleaned, "(")

	numStr := strings.NewReplacer(",", "", "(", "", ")", "").Replace(cleaned)
	numStr = strings.TrimLeft(numStr, "-+")

	match := leadingNumberRe.FindString(numStr)
	if match == "" {
		return decimal.Zero
	}
	num, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero
	}
	if math.IsInf(num.InexactFloat64(), 0) {
		return decimal.Zero
	}
	if negative {
		return num.Neg()
	}
	return num
}

// ParseCurrency is ParseCurrencyDecimal as a float64.
func ParseCurrency(value string) float64 {
	return ParseCurrencyDecimal(value).InexactFloat64()
}

// ParseQuantity reads a unit count. Empty or unparseable cells yield fallback;
// fractional counts are truncated and negative counts are made positive.
// Counts above math.MaxInt32 also yield fallback.
func ParseQuantity(value string, fallback int) int {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	cleaned := strings.NewReplacer(",", "", "(", "", ")", "").Replace(strings.TrimSpace(value))
	cleaned = strings.TrimLeft(cleaned, "-+")
	match := leadingNumberRe.FindString(cleaned)
	if match == "" {
		return fallback
	}
	num, err := decimal.NewFromString(match)
	if err != nil || num.GreaterThan(maxQuantity) {
		return fallback
	}
	return int(num.IntPart())
}
