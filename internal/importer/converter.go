package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// Converter maps a raw table into canonical transactions.
type Converter interface {
	Convert(t *Table) ([]model.Transaction, error)
	Format() Format
}

// MissingColumnsError reports required headers absent from the input.
type MissingColumnsError struct {
	Format  Format
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Format, strings.Join(e.Columns, ", "))
}

// ErrUnsupportedCurrency reports a non-EUR row in a Revolut export.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// requireColumns validates the full column set before any row is processed.
func requireColumns(t *Table, f Format, required []string) error {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Format: f, Columns: missing}
	}
	return nil
}

// NBG web exports have used both dotted and slashed day-first dates.
var nbgDateLayouts = []string{"02.01.2006", "02/01/2006"}

func parseNBGDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range nbgDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", s)
}

// E-commerce prefixes NBG prepends to merchant descriptions. The secure
// variant must be tried first; both are anchored at the start of the field.
const (
	securePurchasePrefix = "3D SECURE E-COMMERCE ΑΓΟΡΑ - "
	purchasePrefix       = "E-COMMERCE ΑΓΟΡΑ - "
)

func stripPurchasePrefix(s string) string {
	s = strings.TrimPrefix(s, securePurchasePrefix)
	return strings.TrimPrefix(s, purchasePrefix)
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stripAccents removes diacritical marks, e.g. "Χρέωση" -> "Χρεωση".
func stripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// isDebit and isCredit classify an NBG debit/credit indicator value,
// tolerating accents, case, and the abbreviated single-letter forms.
func isDebit(indicator string) bool {
	switch strings.ToUpper(stripAccents(strings.TrimSpace(indicator))) {
	case "Χ", "ΧΡΕΩΣΗ", "D", "DEBIT":
		return true
	}
	return false
}

func isCredit(indicator string) bool {
	switch strings.ToUpper(stripAccents(strings.TrimSpace(indicator))) {
	case "Π", "ΠΙΣΤΩΣΗ", "C", "CREDIT":
		return true
	}
	return false
}
