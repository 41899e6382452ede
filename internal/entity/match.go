package entity

import "github.com/reconcileai/reconcileai/constants"

// MatchRecord is one tuple of a match set: the interpreter's judgment for a
// single bank transaction. SecondaryTransactionID is empty when no counterpart
// was found.
type MatchRecord struct {
	BankTransactionID      string                    `json:"bankTransactionId"`
	SecondaryTransactionID string                    `json:"secondaryTransactionId,omitempty"`
	Confidence             float64                   `json:"confidence"`
	Explanation            string                    `json:"explanation"`
	SuggestedAction        constants.SuggestedAction `json:"suggestedAction"`
}

// ReconciliationResult is the assembled outcome of one reconciliation run.
// BankTransactions always has the same length as the input bank list, each
// element carrying an attached match.
type ReconciliationResult struct {
	BankTransactions      []Transaction `json:"bankTransactions"`
	SecondaryTransactions []Transaction `json:"secondaryTransactions"`
	Matches               []MatchRecord `json:"matches"`
	AverageConfidence     float64       `json:"averageConfidence"`
}

// MatchedCount returns the number of bank transactions whose attached match
// meets or exceeds the given confidence threshold.
func (r *ReconciliationResult) MatchedCount(threshold float64) int {
	n := 0
	for _, tx := range r.BankTransactions {
		if tx.Match != nil && tx.Match.Confidence > threshold {
			n++
		}
	}
	return n
}
