// Package review implements the reviewer-action state machine for
// transactions. The transition rules are pure; persistence (the atomic
// status update plus audit record) lives in the repository layer.
package review

import (
	"fmt"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
)

// Outcome describes the effect of one reviewer action.
type Outcome struct {
	NewStatus constants.TxStatus
	// NewConfidence is nil when the action leaves confidence untouched.
	NewConfidence *float64
	// StatusChanged is false for note actions and for idempotent repeats
	// (accepting an already-accepted transaction).
	StatusChanged bool
}

// Apply computes the transition for an action against the current state.
// Actions are idempotent: re-applying the same action yields the same end
// state, only the audit trail grows.
func Apply(action constants.ReviewAction, current constants.TxStatus) (Outcome, error) {
	switch action {
	case constants.ReviewAccept:
		conf := 1.0
		return Outcome{
			NewStatus:     constants.TxStatusAccepted,
			NewConfidence: &conf,
			StatusChanged: current != constants.TxStatusAccepted,
		}, nil
	case constants.ReviewReject:
		conf := 0.0
		return Outcome{
			NewStatus:     constants.TxStatusRejected,
			NewConfidence: &conf,
			StatusChanged: current != constants.TxStatusRejected,
		}, nil
	case constants.ReviewFlag:
		// Flagging preserves whatever confidence the match carried.
		return Outcome{
			NewStatus:     constants.TxStatusFlagged,
			StatusChanged: current != constants.TxStatusFlagged,
		}, nil
	case constants.ReviewNote:
		return Outcome{NewStatus: current}, nil
	}
	return Outcome{}, fmt.Errorf("%w: unknown action %q", common.ErrInvalidInput, action)
}

// SyncEligible reports whether a transaction belongs on the provider sync
// queue: it must be accepted, and its match confidence must be absent or
// below the already-synced threshold (high-confidence matches are assumed to
// exist on the provider side already).
func SyncEligible(status constants.TxStatus, matchConfidence *float64, alreadySynced float64) bool {
	if status != constants.TxStatusAccepted {
		return false
	}
	return matchConfidence == nil || *matchConfidence < alreadySynced
}
