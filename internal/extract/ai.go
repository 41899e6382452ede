package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/llm"
)

// aiRow is the tolerant shape of one extracted row: amounts may arrive as
// numbers or strings, fields may be missing.
type aiRow struct {
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      flexAmount `json:"amount"`
	Type        string     `json:"type"`
}

// flexAmount decodes a JSON number or a decimal string ("1,202.50" included).
type flexAmount struct {
	value decimal.Decimal
	valid bool
}

func (f *flexAmount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	d, err := parseAmount(s)
	if err != nil {
		return nil // leave invalid, row gets dropped
	}
	f.value = d
	f.valid = true
	return nil
}

// parseWithAI extracts a category document by prompting the model with its
// text layer. structured carries any rows a previous structured attempt
// already recovered; they are rendered as text when the file has no other
// readable representation.
func (e *Extractor) parseWithAI(ctx context.Context, doc Document, category constants.Category, structured []entity.Transaction) ([]entity.Transaction, error) {
	start := time.Now()

	text, err := e.documentText(ctx, doc, structured)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(text)) < e.cfg.MinTextLen {
		return nil, fmt.Errorf("insufficient text content: %d chars", len(text))
	}

	system, user, err := e.prompts.Extraction(category, text)
	if err != nil {
		return nil, err
	}

	reply, err := e.chat.Chat(ctx, system, user, llm.ChatOptions{Temperature: 0.1, MaxTokens: 2000})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	raw, err := llm.ExtractJSONArray(reply)
	if err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if vErr := llm.ValidateJSONAgainstSchema(llm.BuildRowJSONSchema(), raw); vErr != nil {
		// Tolerate schema drift; the row decoder below is lenient.
		e.logger.Warn("extract.ai.schema_mismatch", "file", doc.Name, "category", category, "error", vErr)
	}

	var rows []aiRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	prefix := prefixOr(doc.IDPrefix, string(category))
	txs := make([]entity.Transaction, 0, len(rows))
	for _, row := range rows {
		if tx, ok := e.aiRowTransaction(row, prefix, len(txs)+1); ok {
			txs = append(txs, tx)
		}
	}

	e.logger.Info("extract.ai.ok",
		"file", doc.Name,
		"category", category,
		"rows", len(txs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return txs, nil
}

func (e *Extractor) aiRowTransaction(row aiRow, prefix string, seq int) (entity.Transaction, bool) {
	if !row.Amount.valid {
		return entity.Transaction{}, false
	}
	amount := row.Amount.value
	if e.negligible(amount) {
		return entity.Transaction{}, false
	}

	date, err := entity.ParseDate(row.Date)
	if err != nil {
		now := time.Now().UTC()
		date = entity.NewDate(now.Year(), now.Month(), now.Day())
	}
	desc := strings.TrimSpace(row.Description)
	if desc == "" {
		desc = "Unknown transaction"
	}

	var txType entity.TxType
	if row.Type == string(entity.TxDebit) {
		txType = entity.TxDebit
	} else if row.Type == string(entity.TxCredit) {
		txType = entity.TxCredit
	}
	signed, derived := entity.NormalizeSigned(amount, txType)

	return entity.Transaction{
		ID:          fmt.Sprintf("%s-%d", prefix, seq),
		Date:        date,
		Description: desc,
		Amount:      signed,
		Type:        derived,
		Status:      constants.TxStatusPending,
	}, true
}

// documentText produces the text the extraction prompt sees. PDFs use the
// OCR text layer; spreadsheet formats render their structured rows.
func (e *Extractor) documentText(ctx context.Context, doc Document, structured []entity.Transaction) (string, error) {
	if doc.MimeType == constants.MimePDF {
		res, err := e.analyzer.AnalyzeDocument(ctx, doc.Data)
		if err == nil && len(res.Lines) > 0 {
			return strings.Join(res.Lines, "\n"), nil
		}
		if err != nil {
			e.logger.Warn("extract.ai.ocr_failed", "file", doc.Name, "error", err)
		}
		// Fall through to structured rows if OCR gave nothing.
	}

	if structured == nil && doc.MimeType != constants.MimePDF {
		parsed, err := e.Parse(ctx, doc)
		if err != nil {
			return "", err
		}
		structured = parsed
	}
	if len(structured) == 0 {
		return "", fmt.Errorf("no readable text in %s", doc.Name)
	}

	var sb strings.Builder
	for _, t := range structured {
		fmt.Fprintf(&sb, "Date: %s, Description: %s, Amount: %s, Type: %s\n",
			t.Date.String(), t.Description, t.Amount.StringFixed(2), t.Type)
	}
	return sb.String(), nil
}
