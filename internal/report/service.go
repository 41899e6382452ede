// Package report builds and stores point-in-time reconciliation snapshots.
// A report freezes the transaction set and its aggregates at generation time
// so later edits to the live data never rewrite history.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/repository"
)

// Store is the persistence surface. *repository.ReportRepository satisfies it.
type Store interface {
	Create(ctx context.Context, rep *entity.ReconciliationReport) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ReconciliationReport, error)
	List(ctx context.Context, q repository.ReportQuery) ([]entity.ReconciliationReport, error)
	UpdateMutable(ctx context.Context, id uuid.UUID, name string, isFavorite bool, tags []string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service generates and manages report snapshots.
type Service struct {
	store     Store
	model     string
	threshold float64
	log       *slog.Logger
}

// NewService wires the snapshot service. threshold is the accept-eligible
// confidence recorded in AI report metadata.
func NewService(store Store, model string, threshold float64, logger *slog.Logger) *Service {
	if threshold <= 0 {
		threshold = 0.7
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, model: model, threshold: threshold, log: logger}
}

// GenerateRequest carries everything a snapshot needs.
type GenerateRequest struct {
	ReportName      string
	ReportType      string
	Transactions    []entity.Transaction
	BankStatementID *uuid.UUID
	SessionID       *uuid.UUID
	Provider        string
	BankName        string
	AccountNumber   string
	Scope           string
	Category        string
	ProcessingTime  float64
	Filters         json.RawMessage
	GeneratedBy     string
	OriginalName    string
	FileSize        int64
}

var validReportTypes = map[string]bool{
	constants.ReportAISync:   true,
	constants.ReportXeroSync: true,
	constants.ReportZohoSync: true,
	constants.ReportManual:   true,
}

// Generate builds the summary and metadata blocks, fills defaults, and
// persists the snapshot.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*entity.ReconciliationReport, error) {
	if !validReportTypes[req.ReportType] {
		return nil, fmt.Errorf("%w: unknown report type %q", common.ErrInvalidInput, req.ReportType)
	}

	name := req.ReportName
	if name == "" {
		name = DefaultName(req.ReportType, req.BankName, time.Now())
	}
	generatedBy := req.GeneratedBy
	if generatedBy == "" {
		generatedBy = "Current User"
	}

	summary := Summarize(req.Transactions, req.ProcessingTime)
	summary.Provider = req.Provider
	summary.BankName = req.BankName
	summary.AccountNumber = req.AccountNumber

	meta := entity.ReportMetadata{
		Provider: req.Provider,
		Scope:    req.Scope,
		Category: req.Category,
		Filters:  req.Filters,
	}
	if req.ReportType != constants.ReportManual {
		meta.Model = s.model
		meta.ConfidenceThreshold = s.threshold
	}

	rep := &entity.ReconciliationReport{
		ReportName:      name,
		ReportType:      req.ReportType,
		BankStatementID: req.BankStatementID,
		SessionID:       req.SessionID,
		Status:          "completed",
		Summary:         summary,
		TransactionData: req.Transactions,
		Metadata:        meta,
		GeneratedBy:     generatedBy,
		OriginalName:    req.OriginalName,
		FileSize:        req.FileSize,
	}
	if err := s.store.Create(ctx, rep); err != nil {
		return nil, err
	}

	s.log.Info("report.generate.ok",
		"report_id", rep.ID, "type", rep.ReportType,
		"transactions", summary.TotalTransactions,
		"matched", summary.MatchedTransactions)
	return rep, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.ReconciliationReport, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, q repository.ReportQuery) ([]entity.ReconciliationReport, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	return s.store.List(ctx, q)
}

// Rename updates the mutable fields of a snapshot; everything else is frozen.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string, isFavorite bool, tags []string) (*entity.ReconciliationReport, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: report name is required", common.ErrInvalidInput)
	}
	if tags == nil {
		tags = []string{}
	}
	if err := s.store.UpdateMutable(ctx, id, name, isFavorite, tags); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// Summarize computes the aggregate block for a transaction set. A transaction
// counts as matched once accepted or AI-matched; it counts as unmatched while
// pending, or whenever it is neither AI-matched nor accepted.
func Summarize(txs []entity.Transaction, processingTime float64) entity.ReportSummary {
	sum := entity.ReportSummary{
		TotalTransactions: len(txs),
		ProcessingTime:    processingTime,
	}

	var confTotal float64
	var confCount int
	for _, t := range txs {
		if t.Status == constants.TxStatusAccepted || t.IsMatched {
			sum.MatchedTransactions++
		}
		if t.Status == constants.TxStatusFlagged {
			sum.FlaggedTransactions++
		}
		if t.Status == constants.TxStatusPending || (!t.IsMatched && t.Status != constants.TxStatusAccepted) {
			sum.UnmatchedTransactions++
		}
		if t.Match != nil && t.Match.Confidence > 0 {
			confTotal += t.Match.Confidence
			confCount++
		}
	}
	if confCount > 0 {
		sum.AverageConfidence = confTotal / float64(confCount)
	}
	return sum
}

// DefaultName derives a human-readable report name from the type and source.
func DefaultName(reportType, bankName string, at time.Time) string {
	stamp := at.Format(entity.DateFormat)
	if bankName == "" {
		bankName = "Bank"
	}
	switch reportType {
	case constants.ReportAISync:
		return fmt.Sprintf("AI Reconciliation - %s - %s", bankName, stamp)
	case constants.ReportXeroSync:
		return fmt.Sprintf("Xero Reconciliation - %s - %s", bankName, stamp)
	case constants.ReportZohoSync:
		return fmt.Sprintf("Zoho Reconciliation - %s - %s", bankName, stamp)
	case constants.ReportManual:
		return fmt.Sprintf("Manual Reconciliation - %s", stamp)
	}
	return fmt.Sprintf("Reconciliation Report - %s", stamp)
}
