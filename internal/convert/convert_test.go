package convert

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/dedupe"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/importer"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

const accountCSV = `Valeur,Ονοματεπώνυμο αντισυμβαλλόμενου,Περιγραφή,Ποσό συναλλαγής,Χρέωση / Πίστωση
15.03.2024,ΚΑΦΕ ΤΕΧΝΗ,E-COMMERCE ΑΓΟΡΑ - ΚΑΦΕ,"10,50",Χρέωση
16.03.2024,ACME PAYROLL,ΜΙΣΘΟΔΟΣΙΑ,"1.200,00",Πίστωση
`

func writeInput(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRun_AccountExport(t *testing.T) {
	input := writeInput(t, "statement_2024-03-20.csv", accountCSV)
	outDir := t.TempDir()

	result, err := Run(input, Options{OutputDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, importer.FormatNBGAccount, result.Format)
	assert.Equal(t, 2, result.Converted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, filepath.Join(outDir, "statement_2024-03-20_ynab.csv"), result.OutputPath)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "Date,Payee,Amount,Memo")
	assert.Contains(t, out, "2024-03-15,ΚΑΦΕ ΤΕΧΝΗ,-10.50,ΚΑΦΕ")
	assert.Contains(t, out, "2024-03-16,ACME PAYROLL,1200.00,ΜΙΣΘΟΔΟΣΙΑ")
}

func TestRun_DedupesAgainstPreviousOutput(t *testing.T) {
	input := writeInput(t, "statement_2024-03-20.csv", accountCSV)
	outDir := t.TempDir()

	first, err := Run(input, Options{OutputDir: outDir})
	require.NoError(t, err)

	second, err := Run(input, Options{
		PreviousPath: first.OutputPath,
		OutputDir:    t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Converted)
	assert.Equal(t, 2, second.Duplicates)
	assert.Empty(t, second.Transactions)
}

func TestRun_DedupesAgainstReference(t *testing.T) {
	input := writeInput(t, "statement.csv", accountCSV)

	reference := []model.Transaction{{
		Date:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Payee:  "ΚΑΦΕ ΤΕΧΝΗ",
		Amount: decimal.RequireFromString("-10.50"),
		Memo:   "ΚΑΦΕ",
	}}

	result, err := Run(input, Options{Reference: reference, NoOutput: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Duplicates)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "ACME PAYROLL", result.Transactions[0].Payee)
}

func TestRun_CutoffPolicy(t *testing.T) {
	input := writeInput(t, "statement.csv", accountCSV)

	// Reference newest date is 2024-03-16, so only the 03-15 row is
	// strictly before it and gets dropped.
	reference := []model.Transaction{{
		Date:   time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		Payee:  "unrelated",
		Amount: decimal.RequireFromString("-1.00"),
	}}

	result, err := Run(input, Options{
		Reference: reference,
		Policy:    dedupe.PolicyCutoff,
		NoOutput:  true,
	})
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "2024-03-16", result.Transactions[0].DateString())
}

func TestRun_RevolutOutputStampedToday(t *testing.T) {
	const revolutCSV = `Type,Product,Started Date,Completed Date,Description,Amount,Fee,Currency,State,Balance
CARD_PAYMENT,Current,2020-01-01 10:23:45,2020-01-02 08:00:00,Spotify,-10.50,0.00,EUR,COMPLETED,100.00
`
	input := writeInput(t, "revolut_2020-01-01.csv", revolutCSV)
	outDir := t.TempDir()

	result, err := Run(input, Options{OutputDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, importer.FormatRevolut, result.Format)
	today := time.Now().Format(model.DateFormat)
	assert.Equal(t, filepath.Join(outDir, "revolut_"+today+"_ynab.csv"), result.OutputPath)
}

func TestRun_NoOutputSkipsFile(t *testing.T) {
	input := writeInput(t, "statement.csv", accountCSV)

	result, err := Run(input, Options{NoOutput: true})
	require.NoError(t, err)

	assert.Empty(t, result.OutputPath)
	assert.Len(t, result.Transactions, 2)
}

func TestRun_RejectsNonCSV(t *testing.T) {
	input := writeInput(t, "statement.xlsx", "whatever")

	_, err := Run(input, Options{})
	assert.ErrorIs(t, err, ErrNotCSV)
}

func TestRun_UnrecognizedFormat(t *testing.T) {
	input := writeInput(t, "statement.csv", "A,B,C\n1,2,3\n")

	_, err := Run(input, Options{})
	assert.ErrorIs(t, err, importer.ErrUnrecognizedFormat)
}
