package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReportSummary is the aggregate block persisted inside a report snapshot.
type ReportSummary struct {
	TotalTransactions     int     `json:"totalTransactions"`
	MatchedTransactions   int     `json:"matchedTransactions"`
	FlaggedTransactions   int     `json:"flaggedTransactions"`
	UnmatchedTransactions int     `json:"unmatchedTransactions"`
	AverageConfidence     float64 `json:"averageConfidence"`
	ProcessingTime        float64 `json:"processingTime"`
	Provider              string  `json:"provider,omitempty"`
	BankName              string  `json:"bankName,omitempty"`
	AccountNumber         string  `json:"accountNumber,omitempty"`
}

// ReportMetadata captures how a reconciliation run was produced.
type ReportMetadata struct {
	Provider            string          `json:"provider,omitempty"`
	Scope               string          `json:"scope,omitempty"`
	Category            string          `json:"category,omitempty"`
	DateFrom            *Date           `json:"dateFrom,omitempty"`
	DateTo              *Date           `json:"dateTo,omitempty"`
	Model               string          `json:"model,omitempty"`
	ConfidenceThreshold float64         `json:"confidenceThreshold,omitempty"`
	Filters             json.RawMessage `json:"filters,omitempty"`
}

// ReconciliationReport is a persisted point-in-time snapshot of a run.
// Immutable once generated except for ReportName, IsFavorite, and Tags.
type ReconciliationReport struct {
	ID              uuid.UUID       `json:"id"`
	ReportName      string          `json:"reportName"`
	ReportType      string          `json:"reportType"` // ai_sync, xero_sync, zoho_sync, manual
	BankStatementID *uuid.UUID      `json:"bankStatementId,omitempty"`
	SessionID       *uuid.UUID      `json:"reconciliationSessionId,omitempty"`
	Status          string          `json:"status"`
	Summary         ReportSummary   `json:"summaryData"`
	TransactionData []Transaction   `json:"transactionData"`
	Metadata        ReportMetadata  `json:"reconciliationMetadata"`
	GeneratedBy     string          `json:"generatedBy"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	LastAccessed    *time.Time      `json:"lastAccessed,omitempty"`
	IsFavorite      bool            `json:"isFavorite"`
	Tags            []string        `json:"tags"`
	OriginalName    string          `json:"originalFilename,omitempty"`
	FileSize        int64           `json:"fileSize,omitempty"`
}
