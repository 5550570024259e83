// Package dedupe removes transactions already present in a reference set.
package dedupe

import (
	"strings"
	"time"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// Policy selects how candidates are compared against the reference set.
type Policy int

const (
	// PolicyExact drops a candidate only on a full 4-tuple match of date,
	// payee, amount, and memo. This is the default.
	PolicyExact Policy = iota
	// PolicyCutoff additionally drops every candidate dated strictly
	// before the newest reference transaction. Legacy behavior, opt-in.
	PolicyCutoff
)

func (p Policy) String() string {
	if p == PolicyCutoff {
		return "cutoff"
	}
	return "exact"
}

// ExcludeExisting returns the candidates not present in reference,
// preserving candidate order. Payee and memo comparison is case-insensitive
// and whitespace-trimmed; amounts must match exactly. Idempotent: applying
// it twice with the same reference changes nothing.
func ExcludeExisting(candidates, reference []model.Transaction, policy Policy) []model.Transaction {
	retained := make([]model.Transaction, 0, len(candidates))
	if len(reference) == 0 {
		return append(retained, candidates...)
	}

	seen := make(map[string]struct{}, len(reference))
	var cutoff time.Time
	for _, r := range reference {
		seen[matchKey(r)] = struct{}{}
		if r.Date.After(cutoff) {
			cutoff = r.Date
		}
	}

	for _, c := range candidates {
		if policy == PolicyCutoff && c.Date.Before(cutoff) {
			continue
		}
		if _, dup := seen[matchKey(c)]; dup {
			continue
		}
		retained = append(retained, c)
	}
	return retained
}

func matchKey(t model.Transaction) string {
	return t.DateString() + "|" + fold(t.Payee) + "|" + t.Amount.StringFixed(2) + "|" + fold(t.Memo)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
