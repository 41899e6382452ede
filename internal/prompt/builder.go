package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
)

// ErrPromptTooLarge is returned when the rendered prompt exceeds the byte
// budget. We refuse to truncate silently: a clipped transaction list makes
// the model hallucinate matches for transactions it never saw.
var ErrPromptTooLarge = errors.New("prompt exceeds size budget")

// Builder renders extraction and matching prompts. Rendering is
// deterministic: the same inputs always produce the same bytes, which keeps
// replies comparable across retries.
type Builder struct {
	maxBytes int
}

func NewBuilder(maxBytes int) *Builder {
	if maxBytes <= 0 {
		maxBytes = 48 << 10
	}
	return &Builder{maxBytes: maxBytes}
}

// Extraction renders the prompt pair for pulling transaction rows out of raw
// document text.
func (b *Builder) Extraction(category constants.Category, documentText string) (system, user string, err error) {
	p := profileFor(category)

	system = fmt.Sprintf(
		"You are an expert at parsing %s documents and extracting structured transaction data. Always respond with valid JSON.",
		category,
	)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this %s document and extract transaction data from the following text:\n\n", category)
	sb.WriteString(documentText)
	sb.WriteString("\n\n")
	sb.WriteString(p.extraction)
	user = sb.String()

	if len(system)+len(user) > b.maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes over %d", ErrPromptTooLarge, len(system)+len(user), b.maxBytes)
	}
	return system, user, nil
}

// CompleteMatching renders the generic reconciliation prompt pair.
func (b *Builder) CompleteMatching(bank, secondary []entity.Transaction) (system, user string, err error) {
	system = "You are an expert at reconciling financial transactions. Find matches between bank statements and other financial documents."

	var sb strings.Builder
	sb.WriteString("Reconcile these bank transactions with secondary document transactions:\n\n")
	sb.WriteString("BANK TRANSACTIONS:\n")
	writeTransactionList(&sb, bank)
	sb.WriteString("\nSECONDARY DOCUMENT TRANSACTIONS:\n")
	writeTransactionList(&sb, secondary)
	sb.WriteString(`
Find matches based on:
1. Amount similarity (exact or close)
2. Date proximity (same day or within 1-2 days)
3. Description correlation
`)
	sb.WriteString(matchOutputBlock)
	user = sb.String()

	if len(system)+len(user) > b.maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes over %d", ErrPromptTooLarge, len(system)+len(user), b.maxBytes)
	}
	return system, user, nil
}

// SpecificMatching renders the category-aware reconciliation prompt pair.
func (b *Builder) SpecificMatching(bank, secondary []entity.Transaction, category constants.Category) (system, user string, err error) {
	p := profileFor(category)

	system = fmt.Sprintf(
		"You are an expert at reconciling %s documents with bank statements. Use category-specific logic for accurate matching.",
		category,
	)

	var sb strings.Builder
	sb.WriteString(p.matchingFocus)
	sb.WriteString("\n\nBANK TRANSACTIONS:\n")
	writeTransactionList(&sb, bank)
	fmt.Fprintf(&sb, "\n%s TRANSACTIONS:\n", strings.ToUpper(string(category)))
	writeTransactionList(&sb, secondary)
	fmt.Fprintf(&sb, "\nCategory-specific matching rules for %s:\n%s\n", category, p.matchingRules)
	sb.WriteString(matchOutputBlock)
	user = sb.String()

	if len(system)+len(user) > b.maxBytes {
		return "", "", fmt.Errorf("%w: %d bytes over %d", ErrPromptTooLarge, len(system)+len(user), b.maxBytes)
	}
	return system, user, nil
}

const matchOutputBlock = `
Return JSON array of matches:
[
  {
    "bankTransactionId": "bank_transaction_id",
    "secondaryTransactionId": "secondary_transaction_id",
    "confidence": 0.85,
    "explanation": "Explanation of the match",
    "suggestedAction": "match"
  }
]

suggestedAction must be one of: match, flag, split, defer.
`

func writeTransactionList(sb *strings.Builder, txs []entity.Transaction) {
	for _, t := range txs {
		// Direction travels in Type; print the magnitude so the model never
		// has to reason about sign conventions.
		fmt.Fprintf(sb, "ID: %s, Date: %s, Description: %q, Amount: $%s, Type: %s\n",
			t.ID, t.Date.String(), t.Description, t.Amount.Abs().StringFixed(2), t.Type)
	}
}
