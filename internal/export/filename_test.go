package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDateFromFilename(t *testing.T) {
	assert.Equal(t, "2024-03-15", DateFromFilename("statement_2024-03-15.csv"))
	assert.Equal(t, "2024-03-15", DateFromFilename("statement_15-03-2024.csv"))
	assert.Equal(t, "", DateFromFilename("statement.csv"))
}

func TestOutputPath_DateFromInputName(t *testing.T) {
	got := outputPathAt("/tmp/in/statement_2024-03-15.csv", "", false, fixedNow)
	assert.Equal(t, filepath.Join("/tmp/in", "statement_2024-03-15_ynab.csv"), got)
}

func TestOutputPath_FallsBackToToday(t *testing.T) {
	got := outputPathAt("/tmp/in/statement.csv", "", false, fixedNow)
	assert.Equal(t, filepath.Join("/tmp/in", "statement_2024-06-01_ynab.csv"), got)
}

func TestOutputPath_ForceToday(t *testing.T) {
	got := outputPathAt("/tmp/in/statement_2024-03-15.csv", "", true, fixedNow)
	assert.Equal(t, filepath.Join("/tmp/in", "statement_2024-06-01_ynab.csv"), got)
}

func TestOutputPath_StripsExistingTrailingDate(t *testing.T) {
	// DD-MM-YYYY trailing dates are dropped from the stem and re-read.
	got := outputPathAt("/tmp/in/statement_15-03-2024.csv", "", false, fixedNow)
	assert.Equal(t, filepath.Join("/tmp/in", "statement_2024-03-15_ynab.csv"), got)
}

func TestOutputPath_OutputDir(t *testing.T) {
	got := outputPathAt("/tmp/in/statement.csv", "/out", false, fixedNow)
	assert.Equal(t, filepath.Join("/out", "statement_2024-06-01_ynab.csv"), got)
}
