package entity

import (
	"time"

	"github.com/google/uuid"
)

// BankStatement is one uploaded statement file and its processing summary.
type BankStatement struct {
	ID                    uuid.UUID `json:"id"`
	Filename              string    `json:"filename"`
	FileType              string    `json:"fileType"`
	StorageKey            string    `json:"-"`
	UploadDate            time.Time `json:"uploadDate"`
	Status                string    `json:"status"` // uploaded, processing, processed, error
	TotalTransactions     int       `json:"totalTransactions"`
	MatchedTransactions   int       `json:"matchedTransactions"`
	UnmatchedTransactions int       `json:"unmatchedTransactions"`
	ConfidenceScore       float64   `json:"confidenceScore"`
	BankName              string    `json:"bankName,omitempty"`
	AccountNumber         string    `json:"accountNumber,omitempty"`
}

// ReconciliationSession tracks one reconciliation run against a statement.
type ReconciliationSession struct {
	ID              uuid.UUID  `json:"id"`
	BankStatementID uuid.UUID  `json:"bankStatementId"`
	Status          string     `json:"status"` // pending, processing, completed, error
	TotalMatches    int        `json:"totalMatches"`
	TotalUnmatched  int        `json:"totalUnmatched"`
	ProcessingTime  float64    `json:"aiProcessingTime"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}
