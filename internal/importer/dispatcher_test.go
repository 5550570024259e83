package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_Account(t *testing.T) {
	f, err := Detect(accountRequired)
	require.NoError(t, err)
	assert.Equal(t, FormatNBGAccount, f)
}

func TestDetect_Card(t *testing.T) {
	columns := append([]string{"Α/Α"}, cardRequired...)
	f, err := Detect(columns)
	require.NoError(t, err)
	assert.Equal(t, FormatNBGCard, f)
}

func TestDetect_Revolut(t *testing.T) {
	columns := append([]string{"Product", "Currency", "Balance"}, revolutRequired...)
	f, err := Detect(columns)
	require.NoError(t, err)
	assert.Equal(t, FormatRevolut, f)
}

// A column set satisfying both the card format (3 columns) and the account
// format (5 columns) must resolve to the more specific account format.
func TestDetect_MostSpecificWins(t *testing.T) {
	columns := append(append([]string{}, cardRequired...), accountRequired...)
	f, err := Detect(columns)
	require.NoError(t, err)
	assert.Equal(t, FormatNBGAccount, f)
}

func TestDetect_Unrecognized(t *testing.T) {
	_, err := Detect([]string{"Foo", "Bar"})
	require.ErrorIs(t, err, ErrUnrecognizedFormat)
	assert.Contains(t, err.Error(), "Foo")
	assert.Contains(t, err.Error(), "Bar")
}

func TestDetect_NormalizesHeaders(t *testing.T) {
	columns := []string{" Valeur ", "Ονοματεπώνυμο  αντισυμβαλλόμενου", "Περιγραφή",
		"Ποσό συναλλαγής", "Χρέωση / Πίστωση"}
	f, err := Detect(columns)
	require.NoError(t, err)
	assert.Equal(t, FormatNBGAccount, f)
}

func TestConverterFor(t *testing.T) {
	for _, f := range []Format{FormatNBGAccount, FormatNBGCard, FormatRevolut} {
		c := ConverterFor(f)
		require.NotNil(t, c, "format %s", f)
		assert.Equal(t, f, c.Format())
	}
	assert.Nil(t, ConverterFor(FormatUnknown))
}
