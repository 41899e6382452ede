package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/reconcileai/reconcileai/constants"
)

// SyncItem is one sync-queue row: a reviewer-accepted transaction waiting to
// be pushed into the accounting system as a new entry.
type SyncItem struct {
	ID            uuid.UUID            `json:"id"`
	TransactionID string               `json:"transactionId"`
	Action        string               `json:"action"`
	Provider      string               `json:"provider"` // xero | zoho
	AccountCode   string               `json:"accountCode,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	Status        constants.SyncStatus `json:"status"`
	ExternalID    string               `json:"externalId,omitempty"`
	ErrorMessage  string               `json:"errorMessage,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
}
