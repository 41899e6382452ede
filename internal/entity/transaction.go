package entity

import (
	"github.com/shopspring/decimal"

	"github.com/reconcileai/reconcileai/constants"
)

// TxType discriminates money in from money out. It is always derived from the
// sign of Amount; it is never independently authoritative.
type TxType string

const (
	TxCredit TxType = "credit"
	TxDebit  TxType = "debit"
)

// Transaction is one bank-statement or secondary-document line item.
//
// Amount is the canonical signed value: positive means money in (credit),
// negative means money out (debit). Extraction paths that receive an unsigned
// amount plus a type discriminator must normalize through NormalizeSigned
// before the transaction crosses any other boundary.
//
// ID is batch-scoped during a run ("bank-1") and becomes the global storage
// key once the row is persisted; SourceID then keeps the batch-scoped value.
type Transaction struct {
	ID          string               `json:"id"`
	SourceID    string               `json:"sourceId,omitempty"`
	Date        Date                 `json:"date"`
	Description string               `json:"description"`
	Amount      decimal.Decimal      `json:"amount"`
	Type        TxType               `json:"type"`
	IsMatched   bool                 `json:"isMatched"`
	Status      constants.TxStatus   `json:"status"`
	Match       *ReconciliationMatch `json:"match,omitempty"`
	ReviewedBy  string               `json:"reviewedBy,omitempty"`
	ReviewedAt  string               `json:"reviewedAt,omitempty"`
	ReviewNotes string               `json:"reviewNotes,omitempty"`
}

// ReconciliationMatch is an AI- or rule-derived judgment linking a bank
// transaction to an accounting-side record. Immutable once attached except by
// a later reconciliation run.
type ReconciliationMatch struct {
	Confidence      float64                   `json:"confidence"`
	Explanation     string                    `json:"explanation"`
	SuggestedAction constants.SuggestedAction `json:"suggestedAction"`
	AccountingEntry *AccountingEntry          `json:"accountingEntry,omitempty"`
}

// AccountingEntry is a counterpart record from the secondary source.
type AccountingEntry struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        Date            `json:"date"`
	Account     string          `json:"account"`
	Reference   string          `json:"reference,omitempty"`
	Type        string          `json:"type,omitempty"`
}

// NormalizeSigned converts an amount plus an optional type discriminator into
// the canonical signed form. When txType is empty the sign of amount decides;
// otherwise the discriminator wins and the magnitude is kept.
func NormalizeSigned(amount decimal.Decimal, txType TxType) (decimal.Decimal, TxType) {
	switch txType {
	case TxDebit:
		return amount.Abs().Neg(), TxDebit
	case TxCredit:
		return amount.Abs(), TxCredit
	}
	if amount.IsNegative() {
		return amount, TxDebit
	}
	return amount, TxCredit
}

// DeriveType reports the discriminator implied by a signed amount.
func DeriveType(amount decimal.Decimal) TxType {
	if amount.IsNegative() {
		return TxDebit
	}
	return TxCredit
}
