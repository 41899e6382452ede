package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/reconcileai/reconcileai/constants"
)

// TransactionAction is one append-only audit entry for a reviewer action.
// The audit trail is the authoritative history; the transaction's current
// status/confidence fields are a projection of its latest entry.
type TransactionAction struct {
	ID               uuid.UUID              `json:"id"`
	TransactionID    string                 `json:"transactionId"`
	ActionType       constants.ReviewAction `json:"actionType"`
	PreviousStatus   constants.TxStatus     `json:"previousStatus"`
	NewStatus        constants.TxStatus     `json:"newStatus"`
	ReviewerName     string                 `json:"reviewerName"`
	ReviewerEmail    string                 `json:"reviewerEmail,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	ConfidenceBefore *float64               `json:"confidenceBefore,omitempty"`
	ConfidenceAfter  *float64               `json:"confidenceAfter,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
}
