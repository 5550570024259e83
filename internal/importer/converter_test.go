package importer

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) *Table {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name)
	require.NoError(t, err)
	tbl, err := ReadTable(strings.NewReader(string(data)))
	require.NoError(t, err)
	return tbl
}

func tableFrom(t *testing.T, csvData string) *Table {
	t.Helper()
	tbl, err := ReadTable(strings.NewReader(csvData))
	require.NoError(t, err)
	return tbl
}

func TestAccountConverter_Fixture(t *testing.T) {
	tbl := readFixture(t, "nbg_account.csv")
	txns, err := (&AccountConverter{}).Convert(tbl)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	// Debit of 10,50 on 15.03.2024 becomes -10.50 on 2024-03-15.
	assert.Equal(t, "2024-03-15", txns[0].DateString())
	assert.Equal(t, "-10.50", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "SPOTIFY", txns[0].Payee)
	assert.Equal(t, "SPOTIFY", txns[0].Memo)

	// Credit stays positive; thousands separator handled.
	assert.Equal(t, "1234.56", txns[1].Amount.StringFixed(2))
	assert.Equal(t, "ΜΙΣΘΟΔΟΣΙΑ ΜΑΡΤΙΟΥ", txns[1].Payee)

	// A raw negative magnitude on a debit row still lands negative.
	assert.Equal(t, "-45.00", txns[2].Amount.StringFixed(2))
}

func TestAccountConverter_MissingColumns(t *testing.T) {
	tbl := tableFrom(t, "Valeur,Περιγραφή\n15.03.2024,x\n")
	_, err := (&AccountConverter{}).Convert(tbl)
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FormatNBGAccount, missing.Format)
	assert.Contains(t, missing.Columns, accountColPayee)
	assert.Contains(t, missing.Columns, accountColAmount)
	assert.Contains(t, missing.Columns, accountColIndicator)
}

func TestAccountConverter_EmptyTable(t *testing.T) {
	header := strings.Join(accountRequired, ",") + "\n"
	tbl := tableFrom(t, header)
	txns, err := (&AccountConverter{}).Convert(tbl)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestAccountConverter_SlashDates(t *testing.T) {
	tbl := tableFrom(t, strings.Join(accountRequired, ",")+"\n"+
		`15/03/2024,ΚΑΦΕ,ΑΓΟΡΑ,"3,20",Χρέωση`+"\n")
	txns, err := (&AccountConverter{}).Convert(tbl)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "2024-03-15", txns[0].DateString())
}

func TestAccountConverter_BadDate(t *testing.T) {
	tbl := tableFrom(t, strings.Join(accountRequired, ",")+"\n"+
		`NOTADATE,x,y,"1,00",Χρέωση`+"\n")
	_, err := (&AccountConverter{}).Convert(tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "parsing date")
}

func TestCardConverter_Fixture(t *testing.T) {
	tbl := readFixture(t, "nbg_card.csv")
	txns, err := (&CardConverter{}).Convert(tbl)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	// Date part only; payee loses both the prefix and the parenthetical.
	assert.Equal(t, "2024-02-05", txns[0].DateString())
	assert.Equal(t, "NETFLIX.COM", txns[0].Payee)
	assert.Equal(t, "NETFLIX.COM (ΑΘΗΝΑ GR)", txns[0].Memo)
	assert.Equal(t, "-13.99", txns[0].Amount.StringFixed(2))

	assert.Equal(t, "150.00", txns[1].Amount.StringFixed(2))
}

func TestCardConverter_NoIndicatorColumn(t *testing.T) {
	tbl := tableFrom(t, strings.Join(cardRequired, ",")+"\n"+
		`05/02/2024 14:32,ΑΓΟΡΑ,"-13,99"`+"\n")
	txns, err := (&CardConverter{}).Convert(tbl)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	// Raw sign is kept when there is no debit/credit column.
	assert.Equal(t, "-13.99", txns[0].Amount.StringFixed(2))
}

func TestRevolutConverter_Fixture(t *testing.T) {
	tbl := readFixture(t, "revolut.csv")
	txns, err := (&RevolutConverter{}).Convert(tbl)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "2024-03-15", txns[0].DateString())
	assert.Equal(t, "Spotify", txns[0].Payee)
	assert.Equal(t, "CARD_PAYMENT", txns[0].Memo)
	assert.Equal(t, "-10.50", txns[0].Amount.StringFixed(2))

	assert.Equal(t, "Payroll topup", txns[1].Payee)
	assert.Equal(t, "500.00", txns[1].Amount.StringFixed(2))
}

// The PENDING Amazon row must be absent from the fixture output.
func TestRevolutConverter_DropsNonCompleted(t *testing.T) {
	tbl := readFixture(t, "revolut.csv")
	txns, err := (&RevolutConverter{}).Convert(tbl)
	require.NoError(t, err)
	for _, txn := range txns {
		assert.NotEqual(t, "Amazon", txn.Payee)
	}
}

func TestRevolutConverter_FeeSubtracted(t *testing.T) {
	header := "Type,Started Date,Description,Amount,Fee,Currency,State\n"
	tbl := tableFrom(t, header+
		"CARD_PAYMENT,2024-03-15 10:00:00,Shop,-25.00,0.50,EUR,COMPLETED\n")
	txns, err := (&RevolutConverter{}).Convert(tbl)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "-25.50", txns[0].Amount.StringFixed(2))
}

func TestRevolutConverter_RejectsNonEUR(t *testing.T) {
	header := "Type,Started Date,Description,Amount,Fee,Currency,State\n"
	tbl := tableFrom(t, header+
		"CARD_PAYMENT,2024-03-15 10:00:00,Shop,-25.00,0.00,EUR,COMPLETED\n"+
		"CARD_PAYMENT,2024-03-16 10:00:00,Shop,-25.00,0.00,USD,PENDING\n")
	_, err := (&RevolutConverter{}).Convert(tbl)
	require.ErrorIs(t, err, ErrUnsupportedCurrency)
	assert.Contains(t, err.Error(), "USD")
}

func TestRevolutConverter_MissingCurrencyColumn(t *testing.T) {
	header := "Type,Started Date,Description,Amount,Fee,State\n"
	tbl := tableFrom(t, header+"CARD_PAYMENT,2024-03-15 10:00:00,Shop,-25.00,0.00,COMPLETED\n")
	_, err := (&RevolutConverter{}).Convert(tbl)
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{revolutColCurrency}, missing.Columns)
}

func TestStripPurchasePrefix(t *testing.T) {
	assert.Equal(t, "SPOTIFY", stripPurchasePrefix("3D SECURE E-COMMERCE ΑΓΟΡΑ - SPOTIFY"))
	assert.Equal(t, "SPOTIFY", stripPurchasePrefix("E-COMMERCE ΑΓΟΡΑ - SPOTIFY"))
	// Anchored at the start only.
	assert.Equal(t, "ΠΛΗΡΩΜΗ E-COMMERCE ΑΓΟΡΑ - X", stripPurchasePrefix("ΠΛΗΡΩΜΗ E-COMMERCE ΑΓΟΡΑ - X"))
	assert.Equal(t, "ΣΟΥΠΕΡ ΜΑΡΚΕΤ", stripPurchasePrefix("ΣΟΥΠΕΡ ΜΑΡΚΕΤ"))
}

func TestIndicatorClassification(t *testing.T) {
	for _, v := range []string{"Χρέωση", "ΧΡΕΩΣΗ", "Χ", " χρέωση ", "DEBIT", "D"} {
		assert.True(t, isDebit(v), "value %q", v)
	}
	for _, v := range []string{"Πίστωση", "ΠΙΣΤΩΣΗ", "Π", "CREDIT", "C"} {
		assert.True(t, isCredit(v), "value %q", v)
	}
	assert.False(t, isDebit("Πίστωση"))
	assert.False(t, isCredit("Χρέωση"))
}

func TestReadTable_ShortRows(t *testing.T) {
	tbl := tableFrom(t, "A,B,C\n1,2\n")
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, "2", tbl.Cell(0, "B"))
	assert.Equal(t, "", tbl.Cell(0, "C"))
}
