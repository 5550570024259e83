// Package amount parses locale-ambiguous decimal strings into exact
// 2-decimal values.
package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformed reports an amount string with no parseable digits.
var ErrMalformed = errors.New("malformed amount")

// Parse converts strings like "1.234,56", "1,234.56" or "1234,56" into a
// signed decimal rounded to 2 places. When both "." and "," appear, the
// rightmost of the two is the decimal separator and the other is a
// thousands separator. A lone separator type is treated as decimal only
// when followed by exactly 1-2 digits at end of string, otherwise as a
// thousands separator. Leading "+" or "-" is honored; sign policy beyond
// that (debit/credit indicators) is the caller's responsibility.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("'", "", " ", "", " ", "").Replace(strings.TrimSpace(s))
	if !strings.ContainsAny(cleaned, "0123456789") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	dot := strings.LastIndexByte(cleaned, '.')
	comma := strings.LastIndexByte(cleaned, ',')
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			cleaned = normalizeDecimal(cleaned, comma)
		} else {
			cleaned = normalizeDecimal(cleaned, dot)
		}
	case comma >= 0:
		if decimalTail(cleaned, comma) {
			cleaned = normalizeDecimal(cleaned, comma)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case dot >= 0:
		if decimalTail(cleaned, dot) {
			cleaned = normalizeDecimal(cleaned, dot)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return d.Round(2), nil
}

// normalizeDecimal strips every separator before position sep and rewrites
// the separator at sep as a dot.
func normalizeDecimal(s string, sep int) string {
	head := strings.NewReplacer(".", "", ",", "").Replace(s[:sep])
	return head + "." + s[sep+1:]
}

// decimalTail reports whether the separator at position sep is followed by
// exactly 1-2 digits running to end of string.
func decimalTail(s string, sep int) bool {
	tail := s[sep+1:]
	if len(tail) < 1 || len(tail) > 2 {
		return false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
