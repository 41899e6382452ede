package recon

import (
	"encoding/json"
	"log/slog"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/llm"
)

const (
	noMatchExplanation  = "No match found in secondary document"
	fallbackExplanation = "unable to process AI response"
)

// Interpreter turns a free-text AI reply into a structurally complete
// reconciliation result. It never fails: a reply with no parseable match
// array degrades to the deterministic fallback set, and a parseable array
// with gaps yields explicit no-match records. Either way the output bank
// list has exactly the input cardinality.
type Interpreter struct {
	policy Policy
	logger *slog.Logger
}

func NewInterpreter(policy Policy, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{policy: policy.withDefaults(), logger: logger}
}

// matchDTO is the tolerant decode target for one AI match record.
type matchDTO struct {
	BankTransactionID      string  `json:"bankTransactionId"`
	SecondaryTransactionID string  `json:"secondaryTransactionId"`
	Confidence             float64 `json:"confidence"`
	Explanation            string  `json:"explanation"`
	SuggestedAction        string  `json:"suggestedAction"`
}

// Interpret parses the reply against the bank and secondary lists.
func (in *Interpreter) Interpret(reply string, bank, secondary []entity.Transaction) entity.ReconciliationResult {
	raw, err := llm.ExtractJSONArray(reply)
	if err != nil {
		in.logger.Warn("recon.interpret.no_payload", "error", err, "reply_len", len(reply))
		return in.Fallback(bank, secondary)
	}

	var dtos []matchDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		in.logger.Warn("recon.interpret.decode_failed", "error", err)
		return in.Fallback(bank, secondary)
	}

	records := make([]entity.MatchRecord, 0, len(dtos))
	byBankID := make(map[string]entity.MatchRecord, len(dtos))
	for _, d := range dtos {
		if d.BankTransactionID == "" {
			in.logger.Warn("recon.interpret.record_missing_bank_id", "secondary_id", d.SecondaryTransactionID)
			continue
		}
		conf := clamp01(d.Confidence)
		if conf != d.Confidence {
			in.logger.Warn("recon.interpret.confidence_clamped", "bank_id", d.BankTransactionID, "raw", d.Confidence)
		}
		rec := entity.MatchRecord{
			BankTransactionID:      d.BankTransactionID,
			SecondaryTransactionID: d.SecondaryTransactionID,
			Confidence:             conf,
			Explanation:            d.Explanation,
			SuggestedAction:        in.suggestedAction(d.SuggestedAction, conf),
		}
		records = append(records, rec)
		if _, seen := byBankID[rec.BankTransactionID]; !seen {
			byBankID[rec.BankTransactionID] = rec
		}
	}

	secondaryByID := make(map[string]entity.Transaction, len(secondary))
	for _, tx := range secondary {
		secondaryByID[tx.ID] = tx
	}

	out := make([]entity.Transaction, len(bank))
	for i, tx := range bank {
		rec, ok := byBankID[tx.ID]
		if !ok {
			tx.IsMatched = false
			tx.Match = &entity.ReconciliationMatch{
				Confidence:      0,
				Explanation:     noMatchExplanation,
				SuggestedAction: constants.ActionFlag,
			}
			out[i] = tx
			continue
		}

		tx.IsMatched = rec.Confidence > in.policy.AcceptEligible
		m := &entity.ReconciliationMatch{
			Confidence:      rec.Confidence,
			Explanation:     rec.Explanation,
			SuggestedAction: rec.SuggestedAction,
		}
		if sec, found := secondaryByID[rec.SecondaryTransactionID]; found {
			m.AccountingEntry = &entity.AccountingEntry{
				ID:          sec.ID,
				Description: sec.Description,
				Amount:      sec.Amount,
				Date:        sec.Date,
				Account:     "Secondary Document",
				Type:        "manual",
			}
		}
		tx.Match = m
		out[i] = tx
	}

	return entity.ReconciliationResult{
		BankTransactions:      out,
		SecondaryTransactions: secondary,
		Matches:               records,
		AverageConfidence:     meanConfidence(records),
	}
}

// Fallback produces the deterministic degraded result used when the AI reply
// is unusable: one placeholder record per bank transaction.
func (in *Interpreter) Fallback(bank, secondary []entity.Transaction) entity.ReconciliationResult {
	out := make([]entity.Transaction, len(bank))
	records := make([]entity.MatchRecord, len(bank))
	for i, tx := range bank {
		tx.IsMatched = false
		tx.Match = &entity.ReconciliationMatch{
			Confidence:      in.policy.FallbackConfidence,
			Explanation:     fallbackExplanation,
			SuggestedAction: constants.ActionDefer,
		}
		out[i] = tx
		records[i] = entity.MatchRecord{
			BankTransactionID: tx.ID,
			Confidence:        in.policy.FallbackConfidence,
			Explanation:       fallbackExplanation,
			SuggestedAction:   constants.ActionDefer,
		}
	}
	return entity.ReconciliationResult{
		BankTransactions:      out,
		SecondaryTransactions: secondary,
		Matches:               records,
		AverageConfidence:     meanConfidence(records),
	}
}

// NoSecondary produces the result for a run with nothing to match against:
// every bank transaction is explicitly unmatched.
func (in *Interpreter) NoSecondary(bank []entity.Transaction) entity.ReconciliationResult {
	out := make([]entity.Transaction, len(bank))
	for i, tx := range bank {
		tx.IsMatched = false
		tx.Match = &entity.ReconciliationMatch{
			Confidence:      0,
			Explanation:     noMatchExplanation,
			SuggestedAction: constants.ActionFlag,
		}
		out[i] = tx
	}
	return entity.ReconciliationResult{
		BankTransactions: out,
		Matches:          []entity.MatchRecord{},
	}
}

func (in *Interpreter) suggestedAction(raw string, confidence float64) constants.SuggestedAction {
	switch constants.SuggestedAction(raw) {
	case constants.ActionMatch, constants.ActionFlag, constants.ActionSplit, constants.ActionDefer:
		return constants.SuggestedAction(raw)
	}
	if confidence > in.policy.AcceptEligible {
		return constants.ActionMatch
	}
	return constants.ActionFlag
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// meanConfidence is the arithmetic mean over match records; 0 when there are
// none, never NaN.
func meanConfidence(records []entity.MatchRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.Confidence
	}
	return sum / float64(len(records))
}
