package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1234.56", "1234.56"},
		{"1.234.567,89", "1234567.89"},
		{"1,234,567.89", "1234567.89"},
		{"1,234", "1234.00"},    // 3-digit tail: thousands separator
		{"1.234", "1234.00"},    // same rule for dot
		{"12,3", "12.30"},       // 1-digit tail: decimal
		{"0,5", "0.50"},
		{"-10,50", "-10.50"},
		{"+10,50", "10.50"},
		{"1'234.56", "1234.56"},
		{"1 234,56", "1234.56"},
		{" 42 ", "42.00"},
		{"0", "0.00"},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got.StringFixed(2), "input %q", tc.in)
	}
}

func TestParse_CommaAndDotAgree(t *testing.T) {
	a, err := Parse("1.234,56")
	require.NoError(t, err)
	b, err := Parse("1,234.56")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.Equal(t, "1234.56", a.StringFixed(2))
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", ",", ".", "--"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestParse_RoundsToTwoPlaces(t *testing.T) {
	got, err := Parse("1.005")
	require.NoError(t, err)
	// 3-digit tail after the lone dot: thousands separator.
	assert.Equal(t, "1005.00", got.StringFixed(2))

	got, err = Parse("10,005")
	require.NoError(t, err)
	assert.Equal(t, "10005.00", got.StringFixed(2))
}
