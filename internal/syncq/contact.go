package syncq

import (
	"regexp"
	"strings"
)

var (
	fromPattern = regexp.MustCompile(`(?i)FROM\s+([A-Z\s]+)`)
	toPattern   = regexp.MustCompile(`(?i)TO\s+([A-Z\s]+)`)
	wordPattern = regexp.MustCompile(`[A-Z][a-z]+`)
)

// Narrative words that look like capitalized names but never are.
var nonNameWords = map[string]bool{
	"Invoice":    true,
	"Payment":    true,
	"Transfer":   true,
	"Deposit":    true,
	"Withdrawal": true,
	"Purchase":   true,
	"Online":     true,
	"Card":       true,
	"Debit":      true,
	"Credit":     true,
	"Bank":       true,
}

// ContactFromDescription pulls a plausible counterparty name out of a bank
// narrative. Transfer narratives name the party after FROM or TO; otherwise
// the first adjacent pair of capitalized words that are not narrative filler
// is the best available guess. Empty means no name could be extracted and
// the caller should use its provider default.
func ContactFromDescription(description string) string {
	if m := fromPattern.FindStringSubmatch(description); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	if m := toPattern.FindStringSubmatch(description); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}

	locs := wordPattern.FindAllStringIndex(description, -1)
	for i := 0; i+1 < len(locs); i++ {
		if description[locs[i][1]:locs[i+1][0]] != " " {
			continue
		}
		first := description[locs[i][0]:locs[i][1]]
		second := description[locs[i+1][0]:locs[i+1][1]]
		if nonNameWords[first] || nonNameWords[second] {
			continue
		}
		return first + " " + second
	}
	return ""
}
