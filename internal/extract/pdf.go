package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
)

var (
	dateToken   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}-[A-Za-z]{3}-\d{4}`)
	amountToken = regexp.MustCompile(`\(?-?[$€£₹]?\d{1,3}(?:,\d{3})*\.\d{2}\)?-?`)
)

// parsePDF recovers transaction rows from the OCR text layer. A line counts
// as a transaction when it carries both a date token and a money token.
func (e *Extractor) parsePDF(ctx context.Context, doc Document) ([]entity.Transaction, error) {
	res, err := e.analyzer.AnalyzeDocument(ctx, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("analyze pdf: %w", err)
	}

	prefix := prefixOr(doc.IDPrefix, "pdf")
	var txs []entity.Transaction
	for _, line := range res.Lines {
		tx, ok := e.lineTransaction(line, prefix, len(txs)+1)
		if !ok {
			continue
		}
		txs = append(txs, tx)
	}
	e.logger.Info("extract.pdf.lines", "file", doc.Name, "ocr_lines", len(res.Lines), "rows", len(txs))
	return txs, nil
}

func (e *Extractor) lineTransaction(line, prefix string, seq int) (entity.Transaction, bool) {
	dateStr := dateToken.FindString(line)
	if dateStr == "" {
		return entity.Transaction{}, false
	}
	amounts := amountToken.FindAllString(line, -1)
	if len(amounts) == 0 {
		return entity.Transaction{}, false
	}

	// With a trailing running balance, the transaction amount is the
	// second-to-last token; with a single token it is the amount itself.
	amountStr := amounts[len(amounts)-1]
	if len(amounts) >= 2 {
		amountStr = amounts[len(amounts)-2]
	}
	amount, err := parseAmount(amountStr)
	if err != nil || e.negligible(amount) {
		return entity.Transaction{}, false
	}

	date, err := entity.ParseDate(dateStr)
	if err != nil {
		return entity.Transaction{}, false
	}

	desc := line
	desc = strings.Replace(desc, dateStr, "", 1)
	for _, a := range amounts {
		desc = strings.Replace(desc, a, "", 1)
	}
	desc = strings.Join(strings.Fields(desc), " ")
	if desc == "" {
		return entity.Transaction{}, false
	}

	signed, txType := entity.NormalizeSigned(amount, "")
	return entity.Transaction{
		ID:          fmt.Sprintf("%s-%d", prefix, seq),
		Date:        date,
		Description: desc,
		Amount:      signed,
		Type:        txType,
		Status:      constants.TxStatusPending,
	}, true
}
