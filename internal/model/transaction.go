package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the ISO calendar-date layout used everywhere transactions
// are serialized (CSV output, bridge wire format, dedupe keys).
const DateFormat = "2006-01-02"

// Transaction is the canonical record produced by a converter.
// Amount is a signed 2-decimal value; negative = expense, positive = income.
// Date carries no time-of-day component.
type Transaction struct {
	Date     time.Time
	Payee    string
	Amount   decimal.Decimal
	Memo     string
	ImportID string // optional, opaque
}

// DateString returns the date formatted as YYYY-MM-DD.
func (t Transaction) DateString() string {
	return t.Date.Format(DateFormat)
}

// Milliunits returns the amount as integer milliunits (1/1000 of a
// currency unit). Exact for any 2-decimal amount.
func (t Transaction) Milliunits() int64 {
	return t.Amount.Shift(3).IntPart()
}

// AmountFromMilliunits converts integer milliunits back into a decimal
// amount rounded to 2 places.
func AmountFromMilliunits(m int64) decimal.Decimal {
	return decimal.NewFromInt(m).Shift(-3).Round(2)
}
