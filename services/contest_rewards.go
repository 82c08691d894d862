package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses a token amount, which must be a non-negative integer in
// decimal notation.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, newInputInvalid("empty amount")
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return decimal.Zero, newInputInvalid("amount %q is not a non-negative integer", raw)
		}
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, newInputInvalid("amount %q is not a non-negative integer", raw)
	}
	return amount, nil
}

// SumAmounts adds up token amounts with arbitrary precision and returns the
// sum as a decimal string.
func SumAmounts(amounts []string) (string, error) {
	total := decimal.Zero
	for _, raw := range amounts {
		amount, err := parseAmount(raw)
		if err != nil {
			return "", err
		}
		total = total.Add(amount)
	}
	return total.String(), nil
}
