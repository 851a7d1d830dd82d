package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyTolerance is the largest difference between two amounts that is still
// considered equal when reconciling collected money against expected amounts.
var MoneyTolerance = decimal.New(1, -2)

// ParseMoney parses an amount written in Brazilian notation (dot as thousands
// separator, comma as decimal separator). Plain dotted decimals such as
// "20.50" are also accepted. Unparseable input yields zero.
func ParseMoney(s string) decimal.Decimal {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return decimal.Zero
	}

	// Remove currency symbols and spaces
	cleaned = strings.ReplaceAll(cleaned, "R$", "")
	cleaned = strings.ReplaceAll(cleaned, "BRL", "")
	cleaned = strings.ReplaceAll(cleaned, "\u00a0", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	isNegative := strings.HasPrefix(cleaned, "-")
	if isNegative {
		cleaned = strings.TrimPrefix(cleaned, "-")
	}

	switch {
	case strings.Contains(cleaned, ","):
		// "1.234,56" and "1234,56"
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Count(cleaned, ".") > 1:
		// "1.234.567"
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	case strings.Contains(cleaned, "."):
		// A single dot followed by exactly three digits is a thousands separator.
		parts := strings.Split(cleaned, ".")
		if len(parts[1]) == 3 {
			cleaned = parts[0] + parts[1]
		}
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	if isNegative {
		amount = amount.Neg()
	}
	return amount.Round(2)
}

// FormatBRL renders an amount as "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	return "R$ " + sign + b.String() + "," + fracPart
}

// WithinTolerance reports whether a and b differ by at most MoneyTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return !a.Sub(b).Abs().GreaterThan(MoneyTolerance)
}

// decodeMoney reads a JSON amount. Strings go through ParseMoney so operator
// input such as "1.234,56" is accepted; numbers are read as written. Null,
// missing and unreadable values yield zero.
func decodeMoney(data json.RawMessage) decimal.Decimal {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return decimal.Zero
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return decimal.Zero
		}
		return ParseMoney(s)
	}
	amount, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return decimal.Zero
	}
	return amount
}
