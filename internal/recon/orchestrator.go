package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/extract"
	"github.com/reconcileai/reconcileai/internal/llm"
	"github.com/reconcileai/reconcileai/internal/prompt"
)

// Request is one reconciliation run. SecondaryRows carries pre-fetched
// secondary transactions (live provider data) and is used only when no
// secondary document is supplied.
type Request struct {
	Bank          extract.Document
	Secondary     *extract.Document
	SecondaryRows []entity.Transaction
	Scope         constants.Scope
	Category      constants.Category
}

// Orchestrator drives one run end to end: extraction, prompting, the AI
// call, and interpretation. Failures after extraction degrade to the
// interpreter's fallback set; only missing or unreadable input files abort.
type Orchestrator struct {
	extractor *extract.Extractor
	chat      llm.ChatClient
	prompts   *prompt.Builder
	interp    *Interpreter
	logger    *slog.Logger
}

func NewOrchestrator(extractor *extract.Extractor, chat llm.ChatClient, prompts *prompt.Builder, interp *Interpreter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		extractor: extractor,
		chat:      chat,
		prompts:   prompts,
		interp:    interp,
		logger:    logger,
	}
}

func (o *Orchestrator) Run(ctx context.Context, req Request) (entity.ReconciliationResult, error) {
	start := time.Now()

	if req.Scope == constants.ScopeSpecific {
		if req.Secondary == nil {
			return entity.ReconciliationResult{}, fmt.Errorf("%w for specific reconciliation", common.ErrMissingSecondary)
		}
		if req.Category == "" {
			return entity.ReconciliationResult{}, fmt.Errorf("%w: category selection is required for specific reconciliation", common.ErrInvalidInput)
		}
	}

	req.Bank.IDPrefix = "bank"
	bankTxs, err := o.extractor.Parse(ctx, req.Bank)
	if err != nil {
		return entity.ReconciliationResult{}, fmt.Errorf("parse bank statement: %w", err)
	}

	secondaryTxs := req.SecondaryRows
	if req.Secondary != nil {
		sec := *req.Secondary
		if req.Scope == constants.ScopeSpecific {
			sec.IDPrefix = string(req.Category)
			secondaryTxs = o.extractor.ParseCategory(ctx, sec, req.Category)
		} else {
			sec.IDPrefix = "secondary"
			secondaryTxs, err = o.extractor.Parse(ctx, sec)
			if err != nil {
				return entity.ReconciliationResult{}, fmt.Errorf("parse secondary document: %w", err)
			}
		}
	}

	o.logger.Info("recon.run.extracted",
		"scope", req.Scope,
		"category", req.Category,
		"bank_rows", len(bankTxs),
		"secondary_rows", len(secondaryTxs),
	)

	result := o.match(ctx, bankTxs, secondaryTxs, req.Scope, req.Category)
	result.SecondaryTransactions = secondaryTxs

	o.logger.Info("recon.run.ok",
		"scope", req.Scope,
		"bank_rows", len(result.BankTransactions),
		"matches", len(result.Matches),
		"avg_confidence", result.AverageConfidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (o *Orchestrator) match(ctx context.Context, bank, secondary []entity.Transaction, scope constants.Scope, category constants.Category) entity.ReconciliationResult {
	if len(bank) == 0 {
		return entity.ReconciliationResult{
			BankTransactions: []entity.Transaction{},
			Matches:          []entity.MatchRecord{},
		}
	}
	if len(secondary) == 0 {
		o.logger.Info("recon.match.no_secondary")
		return o.interp.NoSecondary(bank)
	}

	var (
		system, user string
		err          error
	)
	if scope == constants.ScopeSpecific {
		system, user, err = o.prompts.SpecificMatching(bank, secondary, category)
	} else {
		system, user, err = o.prompts.CompleteMatching(bank, secondary)
	}
	if err != nil {
		o.logger.Error("recon.match.prompt_failed", "error", err)
		return o.interp.Fallback(bank, secondary)
	}

	reply, err := o.chat.Chat(ctx, system, user, llm.ChatOptions{Temperature: 0.1, MaxTokens: 2000})
	if err != nil {
		// Timeouts land here too and get the same treatment as an
		// unparseable reply.
		o.logger.Error("recon.match.ai_failed", "error", err)
		return o.interp.Fallback(bank, secondary)
	}

	return o.interp.Interpret(reply, bank, secondary)
}
