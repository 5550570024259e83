// Package importid builds deterministic import ids in the
// "YNAB:<milliunits>:<date>:<occurrence>" form, so a backend can spot
// re-imports of the same row across runs.
package importid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

const prefix = "YNAB"

// Format returns an import id like "YNAB:-10500:2024-03-15:1".
func Format(milliunits int64, date string, occurrence int) string {
	return fmt.Sprintf("%s:%d:%s:%d", prefix, milliunits, date, occurrence)
}

// Assign fills the ImportID of every transaction that lacks one.
// Occurrence numbering starts at 1 and disambiguates same-day
// same-amount rows in input order.
func Assign(txns []model.Transaction) {
	occurrences := make(map[string]int)
	for i := range txns {
		if txns[i].ImportID != "" {
			continue
		}
		key := strconv.FormatInt(txns[i].Milliunits(), 10) + ":" + txns[i].DateString()
		occurrences[key]++
		txns[i].ImportID = Format(txns[i].Milliunits(), txns[i].DateString(), occurrences[key])
	}
}

// Parse splits an import id back into its parts.
func Parse(id string) (milliunits int64, date string, occurrence int, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[0] != prefix {
		return 0, "", 0, fmt.Errorf("invalid import id format: %q", id)
	}

	milliunits, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", 0, fmt.Errorf("invalid amount in import id %q: %w", id, err)
	}

	occurrence, err = strconv.Atoi(parts[3])
	if err != nil {
		return 0, "", 0, fmt.Errorf("invalid occurrence in import id %q: %w", id, err)
	}

	return milliunits, parts[2], occurrence, nil
}
