package core

import (
	"fmt"
	"strings"
	"unicode"
)

// Money is an amount in minor currency units. Negative amounts are
// expenses, positive amounts are income; zero is not a valid amount.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return Invalid("amount cannot be zero")
	}
	return nil
}

// String formats the amount with two decimal places, e.g. "-12.34".
func (m Money) String() string {
	sign := ""
	cents := m.Cents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot and comma separators are
// accepted, and a leading minus marks an expense.
//
//	ParseDecimalToCents("12.34")  -> 1234
//	ParseDecimalToCents("-12,5")  -> -1250
//	ParseDecimalToCents("12.346") -> 1235
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, Invalid("amount cannot be empty")
	}
	s = strings.ReplaceAll(s, ",", ".")

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, Invalid("malformed amount: " + s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, Invalid("malformed amount: " + s)
		}
	}

	var iv int64
	for _, r := range intPart {
		d := int64(r - '0')
		if iv > ((1<<63-1)-d)/10 {
			return 0, Invalid("amount out of range: " + s)
		}
		iv = iv*10 + d
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, Invalid("amount out of range: " + s)
	}

	// First two fractional digits are cents; half-up on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if cents == 0 {
		return 0, Invalid("amount cannot be zero")
	}
	if negative {
		cents = -cents
	}
	return cents, nil
}
