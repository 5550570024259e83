package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMilliunits(t *testing.T) {
	txn := Transaction{Amount: decimal.RequireFromString("12.34")}
	assert.Equal(t, int64(12340), txn.Milliunits())

	txn.Amount = decimal.RequireFromString("-10.50")
	assert.Equal(t, int64(-10500), txn.Milliunits())

	txn.Amount = decimal.Zero
	assert.Equal(t, int64(0), txn.Milliunits())
}

func TestAmountFromMilliunits(t *testing.T) {
	assert.Equal(t, "12.34", AmountFromMilliunits(12340).StringFixed(2))
	assert.Equal(t, "-10.50", AmountFromMilliunits(-10500).StringFixed(2))
}

func TestMilliunitsRoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "-0.01", "1234.56", "-99999.99"} {
		txn := Transaction{Amount: decimal.RequireFromString(s)}
		assert.True(t, AmountFromMilliunits(txn.Milliunits()).Equal(txn.Amount), "amount %s", s)
	}
}

func TestDateString(t *testing.T) {
	txn := Transaction{Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-15", txn.DateString())
}
