package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/amount"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// CardConverter handles NBG card statement exports. The transaction
// timestamp column carries "dd/mm/yyyy hh:mm"; only the date part is kept.
type CardConverter struct{}

func (c *CardConverter) Format() Format { return FormatNBGCard }

// parentheticals holds trailing merchant metadata like "(ΑΘΗΝΑ GR)".
var parentheticals = regexp.MustCompile(`\s*\([^)]*\)`)

func (c *CardConverter) Convert(t *Table) ([]model.Transaction, error) {
	if err := requireColumns(t, FormatNBGCard, cardRequired); err != nil {
		return nil, err
	}

	hasIndicator := t.HasColumn(cardColIndicator)

	txns := make([]model.Transaction, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		datePart, _, _ := strings.Cut(strings.TrimSpace(t.Cell(i, cardColDateTime)), " ")
		date, err := parseNBGDate(datePart)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		amt, err := amount.Parse(t.Cell(i, cardColAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if hasIndicator {
			indicator := t.Cell(i, cardColIndicator)
			switch {
			case isDebit(indicator):
				amt = amt.Abs().Neg()
			case isCredit(indicator):
				amt = amt.Abs()
			}
		}

		desc := t.Cell(i, cardColDesc)
		payee := parentheticals.ReplaceAllString(desc, "")
		txns = append(txns, model.Transaction{
			Date:   date,
			Payee:  strings.TrimSpace(stripPurchasePrefix(payee)),
			Amount: amt,
			Memo:   strings.TrimSpace(stripPurchasePrefix(desc)),
		})
	}
	return txns, nil
}
