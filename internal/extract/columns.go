package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
)

// columnMap holds the indices of the recognized columns in a header row.
// -1 means absent.
type columnMap struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
}

func (c columnMap) usable() bool {
	return c.amount >= 0 || c.debit >= 0 || c.credit >= 0
}

// mapColumns matches header names the way bank exports label them. Matching
// is case-insensitive and tolerant of punctuation suffixes like
// "Withdrawal Amt." or "Deposit Amount (INR)".
func mapColumns(header []string) columnMap {
	cols := columnMap{date: -1, description: -1, amount: -1, debit: -1, credit: -1}
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case cols.date < 0 && (name == "date" || strings.Contains(name, "txn date") ||
			strings.Contains(name, "transaction date") || strings.Contains(name, "value date")):
			cols.date = i
		case cols.description < 0 && (name == "description" || name == "memo" ||
			strings.Contains(name, "narration") || strings.Contains(name, "particulars") ||
			strings.Contains(name, "remarks") || strings.Contains(name, "details")):
			cols.description = i
		case cols.amount < 0 && name == "amount":
			cols.amount = i
		case cols.debit < 0 && (strings.HasPrefix(name, "debit") || strings.Contains(name, "withdrawal")):
			cols.debit = i
		case cols.credit < 0 && (strings.HasPrefix(name, "credit") || strings.Contains(name, "deposit")):
			cols.credit = i
		}
	}
	return cols
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// rowTransaction converts one data row into a transaction using the column
// map. Returns false for rows with no parseable amount.
func (e *Extractor) rowTransaction(row []string, cols columnMap, prefix string, seq int) (entity.Transaction, bool) {
	var amount decimal.Decimal
	switch {
	case cols.amount >= 0:
		a, err := parseAmount(cell(row, cols.amount))
		if err != nil {
			return entity.Transaction{}, false
		}
		amount = a
	default:
		// Separate debit/credit columns: credit is money in, debit out.
		credit, cErr := parseAmount(cell(row, cols.credit))
		debit, dErr := parseAmount(cell(row, cols.debit))
		if cErr != nil && dErr != nil {
			return entity.Transaction{}, false
		}
		if cErr == nil && !credit.IsZero() {
			amount = credit.Abs()
		} else if dErr == nil {
			amount = debit.Abs().Neg()
		}
	}
	if e.negligible(amount) {
		return entity.Transaction{}, false
	}

	date, err := entity.ParseDate(cell(row, cols.date))
	if err != nil {
		now := time.Now().UTC()
		date = entity.NewDate(now.Year(), now.Month(), now.Day())
	}

	signed, txType := entity.NormalizeSigned(amount, "")
	return entity.Transaction{
		ID:          fmt.Sprintf("%s-%d", prefix, seq),
		Date:        date,
		Description: cell(row, cols.description),
		Amount:      signed,
		Type:        txType,
		Status:      constants.TxStatusPending,
	}, true
}

// parseAmount handles currency symbols, thousands separators, and
// parenthesized negatives.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	replacer := strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "₹", "", " ", "")
	s = replacer.Replace(s)
	if strings.HasSuffix(s, "-") { // trailing-minus exports
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func prefixOr(prefix, fallback string) string {
	if prefix != "" {
		return prefix
	}
	return fallback
}
