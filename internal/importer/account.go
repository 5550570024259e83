package importer

import (
	"fmt"
	"strings"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/amount"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// AccountConverter handles NBG current-account statement exports.
// The value date ("Valeur") becomes the transaction date and the sign is
// taken from the debit/credit column, not from the raw amount.
type AccountConverter struct{}

func (c *AccountConverter) Format() Format { return FormatNBGAccount }

func (c *AccountConverter) Convert(t *Table) ([]model.Transaction, error) {
	if err := requireColumns(t, FormatNBGAccount, accountRequired); err != nil {
		return nil, err
	}

	txns := make([]model.Transaction, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		date, err := parseNBGDate(t.Cell(i, accountColDate))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		amt, err := amount.Parse(t.Cell(i, accountColAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		indicator := t.Cell(i, accountColIndicator)
		switch {
		case isDebit(indicator):
			amt = amt.Abs().Neg()
		case isCredit(indicator):
			amt = amt.Abs()
		}

		txns = append(txns, model.Transaction{
			Date:   date,
			Payee:  strings.TrimSpace(stripPurchasePrefix(t.Cell(i, accountColPayee))),
			Amount: amt,
			Memo:   strings.TrimSpace(stripPurchasePrefix(t.Cell(i, accountColMemo))),
		})
	}
	return txns, nil
}
