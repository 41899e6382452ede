package constants

// TxStatus is the reviewer-facing lifecycle status of a transaction.
type TxStatus string

// Stable values (store these exact strings in DB).
const (
	TxStatusPending     TxStatus = "pending"
	TxStatusAccepted    TxStatus = "accepted"
	TxStatusRejected    TxStatus = "rejected"
	TxStatusFlagged     TxStatus = "flagged"
	TxStatusUnderReview TxStatus = "under_review"
)

// Scope selects between generic and category-aware reconciliation.
type Scope string

const (
	ScopeComplete Scope = "complete"
	ScopeSpecific Scope = "specific"
)

// SuggestedAction is the AI's recommendation for a candidate match.
type SuggestedAction string

const (
	ActionMatch SuggestedAction = "match"
	ActionFlag  SuggestedAction = "flag"
	ActionSplit SuggestedAction = "split"
	ActionDefer SuggestedAction = "defer"
)

// ReviewAction is a reviewer-initiated transition on a transaction.
type ReviewAction string

const (
	ReviewAccept ReviewAction = "accept"
	ReviewReject ReviewAction = "reject"
	ReviewFlag   ReviewAction = "flag"
	ReviewNote   ReviewAction = "note"
)

// SyncStatus tracks a sync-queue item.
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncProcessing SyncStatus = "processing"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)
