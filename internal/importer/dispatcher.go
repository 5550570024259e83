package importer

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies a supported bank export layout.
type Format int

const (
	FormatUnknown Format = iota
	FormatNBGAccount
	FormatNBGCard
	FormatRevolut
)

// Column headers for NBG account statements.
const (
	accountColDate      = "Valeur"
	accountColPayee     = "Ονοματεπώνυμο αντισυμβαλλόμενου"
	accountColMemo      = "Περιγραφή"
	accountColAmount    = "Ποσό συναλλαγής"
	accountColIndicator = "Χρέωση / Πίστωση"
)

// Column headers for NBG card statements.
const (
	cardColDateTime  = "Ημερομηνία/Ώρα Συναλλαγής"
	cardColDesc      = "Περιγραφή Κίνησης"
	cardColAmount    = "Ποσό"
	cardColIndicator = "Χ/Π"
)

// Column headers for Revolut exports.
const (
	revolutColStarted  = "Started Date"
	revolutColDesc     = "Description"
	revolutColType     = "Type"
	revolutColAmount   = "Amount"
	revolutColFee      = "Fee"
	revolutColState    = "State"
	revolutColCurrency = "Currency"
)

var (
	accountRequired = []string{
		accountColDate, accountColPayee, accountColMemo,
		accountColAmount, accountColIndicator,
	}
	cardRequired = []string{cardColDateTime, cardColDesc, cardColAmount}
	// Detection does not demand Currency; the converter does.
	revolutRequired = []string{
		revolutColStarted, revolutColDesc, revolutColType,
		revolutColAmount, revolutColFee, revolutColState,
	}
)

func (f Format) String() string {
	switch f {
	case FormatNBGAccount:
		return "nbg-account"
	case FormatNBGCard:
		return "nbg-card"
	case FormatRevolut:
		return "revolut"
	default:
		return "unknown"
	}
}

// RequiredColumns returns the column set that identifies the format.
func (f Format) RequiredColumns() []string {
	switch f {
	case FormatNBGAccount:
		return accountRequired
	case FormatNBGCard:
		return cardRequired
	case FormatRevolut:
		return revolutRequired
	default:
		return nil
	}
}

// ErrUnrecognizedFormat reports an input whose columns match no known format.
var ErrUnrecognizedFormat = errors.New("unrecognized format")

// Detect returns the format whose required columns are all present. When
// several formats match, the one demanding the most columns wins.
func Detect(columns []string) (Format, error) {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[normalizeColumn(c)] = true
	}

	best := FormatUnknown
	bestLen := 0
	for _, f := range []Format{FormatNBGAccount, FormatNBGCard, FormatRevolut} {
		req := f.RequiredColumns()
		if len(req) <= bestLen {
			continue
		}
		match := true
		for _, c := range req {
			if !present[c] {
				match = false
				break
			}
		}
		if match {
			best = f
			bestLen = len(req)
		}
	}
	if best == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: columns seen: %s",
			ErrUnrecognizedFormat, strings.Join(columns, ", "))
	}
	return best, nil
}

// ConverterFor returns the converter for a detected format, or nil.
func ConverterFor(f Format) Converter {
	switch f {
	case FormatNBGAccount:
		return &AccountConverter{}
	case FormatNBGCard:
		return &CardConverter{}
	case FormatRevolut:
		return &RevolutConverter{}
	default:
		return nil
	}
}
