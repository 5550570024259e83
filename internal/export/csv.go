// Package export writes and reads the canonical YNAB-style CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/amount"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// Header is the CSV header for converted exports.
const Header = "Date,Payee,Amount,Memo"

const (
	numFields = 4
	colDate   = 0
	colPayee  = 1
	colAmount = 2
	colMemo   = 3
)

// Write writes transactions as canonical CSV, header included. Text fields
// beginning with a spreadsheet formula marker are escaped.
func Write(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, txn := range txns {
		row := make([]string, numFields)
		row[colDate] = txn.DateString()
		row[colPayee] = escapeFormula(txn.Payee)
		row[colAmount] = txn.Amount.StringFixed(2)
		row[colMemo] = escapeFormula(txn.Memo)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// escapeFormula neutralizes spreadsheet formula injection: a text field
// whose first non-blank character is =, +, - or @ gets a leading apostrophe.
func escapeFormula(s string) string {
	trimmed := strings.TrimLeft(s, " \t")
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

// unescapeFormula drops the apostrophe escapeFormula added.
func unescapeFormula(s string) string {
	if rest, ok := strings.CutPrefix(s, "'"); ok {
		return rest
	}
	return s
}

// ReadPrevious reads a previously exported CSV back into transactions for
// use as a dedupe reference. It tolerates a missing header and short rows;
// rows whose date or amount do not parse are skipped rather than failing
// the whole reference load.
func ReadPrevious(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading previous export: %w", err)
	}

	var txns []model.Transaction
	for i, rec := range records {
		if len(rec) < numFields {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[colDate]), "date") {
			continue
		}
		date, err := time.Parse(model.DateFormat, strings.TrimSpace(rec[colDate]))
		if err != nil {
			continue
		}
		amt, err := amount.Parse(unescapeFormula(rec[colAmount]))
		if err != nil {
			continue
		}
		txns = append(txns, model.Transaction{
			Date:   date,
			Payee:  unescapeFormula(strings.TrimSpace(rec[colPayee])),
			Amount: amt,
			Memo:   unescapeFormula(strings.TrimSpace(rec[colMemo])),
		})
	}
	return txns, nil
}
