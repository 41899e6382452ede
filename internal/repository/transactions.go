package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/review"
)

// TransactionRepository reads transactions and applies reviewer actions.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const txColumns = `
	id, source_id, tx_date, description, amount, tx_type, is_matched, status,
	confidence, match_data, COALESCE(reviewed_by, ''), reviewed_at,
	COALESCE(review_notes, '')`

func scanTransaction(row pgx.Row) (*entity.Transaction, error) {
	var (
		t          entity.Transaction
		txDate     time.Time
		confidence *float64
		matchJSON  []byte
		reviewedAt *time.Time
	)
	err := row.Scan(
		&t.ID, &t.SourceID, &txDate, &t.Description, &t.Amount, &t.Type, &t.IsMatched,
		&t.Status, &confidence, &matchJSON, &t.ReviewedBy, &reviewedAt, &t.ReviewNotes,
	)
	if err != nil {
		return nil, err
	}
	t.Date = entity.NewDate(txDate.Year(), txDate.Month(), txDate.Day())
	if len(matchJSON) > 0 {
		var m entity.ReconciliationMatch
		if err := json.Unmarshal(matchJSON, &m); err == nil {
			if confidence != nil {
				// The confidence column is authoritative after review.
				m.Confidence = *confidence
			}
			t.Match = &m
		}
	}
	if reviewedAt != nil {
		t.ReviewedAt = reviewedAt.UTC().Format(time.RFC3339)
	}
	return &t, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (*entity.Transaction, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	t, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get transaction: %v", common.ErrDatabase, err)
	}
	return t, nil
}

// List returns a statement's transactions, optionally filtered by status.
func (r *TransactionRepository) List(ctx context.Context, statementID uuid.UUID, status constants.TxStatus) ([]entity.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE bank_statement_id = $1`
	args := []any{statementID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY tx_date, source_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", common.ErrDatabase, err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListByStatus returns all transactions in one status across statements.
func (r *TransactionRepository) ListByStatus(ctx context.Context, status constants.TxStatus) ([]entity.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE status = $1 ORDER BY tx_date, source_id`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions by status: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", common.ErrDatabase, err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ActionRequest is one reviewer action to apply.
type ActionRequest struct {
	TransactionID string
	Action        constants.ReviewAction
	ReviewerName  string
	ReviewerEmail string
	Notes         string
	IPAddress     string
	UserAgent     string
}

// ApplyAction runs the review state machine and persists the status change
// and the audit entry atomically: either both land or neither does.
func (r *TransactionRepository) ApplyAction(ctx context.Context, req ActionRequest) (*entity.Transaction, *entity.TransactionAction, error) {
	if req.ReviewerName == "" {
		req.ReviewerName = "Anonymous User"
	}
	key, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, req.TransactionID)
	}

	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	var (
		prevStatus     string
		prevConfidence *float64
	)
	err = dbTx.QueryRow(ctx,
		`SELECT status, confidence FROM transactions WHERE id = $1 FOR UPDATE`,
		key).Scan(&prevStatus, &prevConfidence)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, req.TransactionID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: lock transaction: %v", common.ErrDatabase, err)
	}

	outcome, err := review.Apply(req.Action, constants.TxStatus(prevStatus))
	if err != nil {
		return nil, nil, err
	}

	newConfidence := prevConfidence
	if outcome.NewConfidence != nil {
		newConfidence = outcome.NewConfidence
	}

	if req.Action == constants.ReviewNote {
		_, err = dbTx.Exec(ctx, `
			UPDATE transactions
			SET review_notes = $2, reviewed_by = $3, reviewed_at = NOW()
			WHERE id = $1`,
			key, req.Notes, req.ReviewerName)
	} else {
		_, err = dbTx.Exec(ctx, `
			UPDATE transactions
			SET status = $2, confidence = $3, reviewed_by = $4, reviewed_at = NOW(), review_notes = $5
			WHERE id = $1`,
			key, string(outcome.NewStatus), newConfidence, req.ReviewerName, nullable(req.Notes))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: update transaction: %v", common.ErrDatabase, err)
	}

	action := &entity.TransactionAction{
		ID:               uuid.New(),
		TransactionID:    req.TransactionID,
		ActionType:       req.Action,
		PreviousStatus:   constants.TxStatus(prevStatus),
		NewStatus:        outcome.NewStatus,
		ReviewerName:     req.ReviewerName,
		ReviewerEmail:    req.ReviewerEmail,
		Notes:            req.Notes,
		ConfidenceBefore: prevConfidence,
		ConfidenceAfter:  newConfidence,
		CreatedAt:        time.Now().UTC(),
	}
	_, err = dbTx.Exec(ctx, `
		INSERT INTO transaction_actions (
			id, transaction_id, action_type, previous_status, new_status,
			reviewer_name, reviewer_email, notes, confidence_before,
			confidence_after, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		action.ID, key, string(action.ActionType),
		string(action.PreviousStatus), string(action.NewStatus),
		action.ReviewerName, nullable(action.ReviewerEmail), nullable(action.Notes),
		action.ConfidenceBefore, action.ConfidenceAfter,
		nullable(req.IPAddress), nullable(req.UserAgent), action.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: insert action: %v", common.ErrDatabase, err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: commit action: %v", common.ErrDatabase, err)
	}

	updated, err := r.Get(ctx, req.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	return updated, action, nil
}

// Actions returns the audit trail for a transaction, newest first.
func (r *TransactionRepository) Actions(ctx context.Context, transactionID string) ([]entity.TransactionAction, error) {
	key, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, transactionID)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, action_type, previous_status, new_status,
		       reviewer_name, COALESCE(reviewer_email, ''), COALESCE(notes, ''),
		       confidence_before, confidence_after, created_at
		FROM transaction_actions
		WHERE transaction_id = $1
		ORDER BY created_at DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("%w: list actions: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.TransactionAction
	for rows.Next() {
		var a entity.TransactionAction
		if err := rows.Scan(
			&a.ID, &a.TransactionID, &a.ActionType, &a.PreviousStatus, &a.NewStatus,
			&a.ReviewerName, &a.ReviewerEmail, &a.Notes,
			&a.ConfidenceBefore, &a.ConfidenceAfter, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan action: %v", common.ErrDatabase, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
