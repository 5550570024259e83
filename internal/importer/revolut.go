package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/amount"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// RevolutConverter handles Revolut CSV exports. Only COMPLETED rows are
// kept; the fee is folded into the amount; any non-EUR row rejects the
// whole file.
type RevolutConverter struct{}

func (c *RevolutConverter) Format() Format { return FormatRevolut }

const revolutCompleted = "COMPLETED"

func (c *RevolutConverter) Convert(t *Table) ([]model.Transaction, error) {
	required := append(append([]string{}, revolutRequired...), revolutColCurrency)
	if err := requireColumns(t, FormatRevolut, required); err != nil {
		return nil, err
	}

	// Currency is validated for every row, including ones later dropped by
	// the state filter: a mixed-currency export rejects outright.
	for i := 0; i < t.Len(); i++ {
		if cur := strings.TrimSpace(t.Cell(i, revolutColCurrency)); cur != "EUR" {
			return nil, fmt.Errorf("%w: row %d has currency %q, only EUR is supported",
				ErrUnsupportedCurrency, i+2, cur)
		}
	}

	var txns []model.Transaction
	for i := 0; i < t.Len(); i++ {
		if strings.TrimSpace(t.Cell(i, revolutColState)) != revolutCompleted {
			continue
		}

		datePart, _, _ := strings.Cut(strings.TrimSpace(t.Cell(i, revolutColStarted)), " ")
		date, err := time.Parse(model.DateFormat, datePart)
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+2, datePart, err)
		}

		amt, err := amount.Parse(t.Cell(i, revolutColAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		fee, err := amount.Parse(t.Cell(i, revolutColFee))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		txns = append(txns, model.Transaction{
			Date:   date,
			Payee:  strings.TrimSpace(t.Cell(i, revolutColDesc)),
			Amount: amt.Sub(fee.Abs()),
			Memo:   strings.TrimSpace(t.Cell(i, revolutColType)),
		})
	}
	return txns, nil
}
