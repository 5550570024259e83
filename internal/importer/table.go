package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is a parsed tabular input: normalized column headers plus data rows.
type Table struct {
	Columns []string

	rows  [][]string
	index map[string]int
}

// ReadTable reads a CSV with a header row. Header names are trimmed and
// inner whitespace collapsed so exports with padded headers still match.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading input CSV: %w", err)
	}
	if len(records) == 0 {
		return &Table{index: map[string]int{}}, nil
	}

	t := &Table{index: make(map[string]int, len(records[0]))}
	for i, col := range records[0] {
		name := normalizeColumn(col)
		t.Columns = append(t.Columns, name)
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	t.rows = records[1:]
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether a column is present.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the value at (row, column), or "" when the column is absent
// or the row is short.
func (t *Table) Cell(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) || i >= len(t.rows[row]) {
		return ""
	}
	return t.rows[row][i]
}

// normalizeColumn trims a header name and collapses runs of whitespace.
func normalizeColumn(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
