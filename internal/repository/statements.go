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

	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
)

// StatementRepository persists bank statements, their reconciliation
// sessions, and the transactions a run produced.
type StatementRepository struct {
	pool *pgxpool.Pool
}

func NewStatementRepository(pool *pgxpool.Pool) *StatementRepository {
	return &StatementRepository{pool: pool}
}

func (r *StatementRepository) CreateStatement(ctx context.Context, st *entity.BankStatement) error {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	if st.UploadDate.IsZero() {
		st.UploadDate = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bank_statements (
			id, filename, file_type, storage_key, upload_date, status,
			total_transactions, matched_transactions, unmatched_transactions,
			confidence_score, bank_name, account_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		st.ID, st.Filename, st.FileType, st.StorageKey, st.UploadDate, st.Status,
		st.TotalTransactions, st.MatchedTransactions, st.UnmatchedTransactions,
		st.ConfidenceScore, nullable(st.BankName), nullable(st.AccountNumber),
	)
	if err != nil {
		return fmt.Errorf("%w: insert bank statement: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *StatementRepository) UpdateStatementSummary(ctx context.Context, st *entity.BankStatement) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bank_statements
		SET status = $2, total_transactions = $3, matched_transactions = $4,
		    unmatched_transactions = $5, confidence_score = $6
		WHERE id = $1`,
		st.ID, st.Status, st.TotalTransactions, st.MatchedTransactions,
		st.UnmatchedTransactions, st.ConfidenceScore,
	)
	if err != nil {
		return fmt.Errorf("%w: update bank statement: %v", common.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bank statement %s", common.ErrNotFound, st.ID)
	}
	return nil
}

func (r *StatementRepository) GetStatement(ctx context.Context, id uuid.UUID) (*entity.BankStatement, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, filename, file_type, storage_key, upload_date, status,
		       total_transactions, matched_transactions, unmatched_transactions,
		       confidence_score, COALESCE(bank_name, ''), COALESCE(account_number, '')
		FROM bank_statements WHERE id = $1`, id)

	var st entity.BankStatement
	err := row.Scan(
		&st.ID, &st.Filename, &st.FileType, &st.StorageKey, &st.UploadDate, &st.Status,
		&st.TotalTransactions, &st.MatchedTransactions, &st.UnmatchedTransactions,
		&st.ConfidenceScore, &st.BankName, &st.AccountNumber,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: bank statement %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get bank statement: %v", common.ErrDatabase, err)
	}
	return &st, nil
}

func (r *StatementRepository) ListStatements(ctx context.Context, limit int) ([]entity.BankStatement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, filename, file_type, storage_key, upload_date, status,
		       total_transactions, matched_transactions, unmatched_transactions,
		       confidence_score, COALESCE(bank_name, ''), COALESCE(account_number, '')
		FROM bank_statements ORDER BY upload_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list bank statements: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.BankStatement
	for rows.Next() {
		var st entity.BankStatement
		if err := rows.Scan(
			&st.ID, &st.Filename, &st.FileType, &st.StorageKey, &st.UploadDate, &st.Status,
			&st.TotalTransactions, &st.MatchedTransactions, &st.UnmatchedTransactions,
			&st.ConfidenceScore, &st.BankName, &st.AccountNumber,
		); err != nil {
			return nil, fmt.Errorf("%w: scan bank statement: %v", common.ErrDatabase, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CreateSession opens a session row for a run; CompleteSession closes it.
func (r *StatementRepository) CreateSession(ctx context.Context, s *entity.ReconciliationSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reconciliation_sessions (
			id, bank_statement_id, status, total_matches, total_unmatched,
			ai_processing_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.BankStatementID, s.Status, s.TotalMatches, s.TotalUnmatched,
		s.ProcessingTime, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert session: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *StatementRepository) CompleteSession(ctx context.Context, s *entity.ReconciliationSession) error {
	now := time.Now().UTC()
	s.CompletedAt = &now
	_, err := r.pool.Exec(ctx, `
		UPDATE reconciliation_sessions
		SET status = $2, total_matches = $3, total_unmatched = $4,
		    ai_processing_time = $5, completed_at = $6
		WHERE id = $1`,
		s.ID, s.Status, s.TotalMatches, s.TotalUnmatched, s.ProcessingTime, s.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: complete session: %v", common.ErrDatabase, err)
	}
	return nil
}

// assignStorageIDs moves each row's batch-scoped parse id into SourceID and
// assigns a fresh global storage key. Parse ids repeat across statements.
func assignStorageIDs(txs []entity.Transaction) {
	for i := range txs {
		if txs[i].SourceID == "" {
			txs[i].SourceID = txs[i].ID
		}
		txs[i].ID = uuid.NewString()
	}
}

// SaveTransactions persists a run's bank transactions in one database
// transaction. Persistence happens only after the pipeline assembled a full
// result, so a partial run never lands as "final". Rows are keyed by a
// surrogate uuid; re-running over the same statement updates in place via
// (bank_statement_id, source_id), and each row's ID is rewritten to the
// stored key.
func (r *StatementRepository) SaveTransactions(ctx context.Context, statementID, sessionID uuid.UUID, txs []entity.Transaction) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	assignStorageIDs(txs)
	for i := range txs {
		t := &txs[i]
		var matchJSON []byte
		var confidence *float64
		if t.Match != nil {
			matchJSON, err = json.Marshal(t.Match)
			if err != nil {
				return fmt.Errorf("encode match for %s: %w", t.SourceID, err)
			}
			confidence = &t.Match.Confidence
		}
		var storedID uuid.UUID
		err = dbTx.QueryRow(ctx, `
			INSERT INTO transactions (
				id, source_id, bank_statement_id, session_id, tx_date, description,
				amount, tx_type, is_matched, status, confidence, match_data
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (bank_statement_id, source_id) DO UPDATE SET
				session_id = EXCLUDED.session_id,
				is_matched = EXCLUDED.is_matched,
				status = EXCLUDED.status,
				confidence = EXCLUDED.confidence,
				match_data = EXCLUDED.match_data
			RETURNING id`,
			t.ID, t.SourceID, statementID, sessionID, t.Date.Time, t.Description,
			t.Amount, string(t.Type), t.IsMatched, string(t.Status), confidence, matchJSON,
		).Scan(&storedID)
		if err != nil {
			return fmt.Errorf("%w: insert transaction %s: %v", common.ErrDatabase, t.SourceID, err)
		}
		t.ID = storedID.String()
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit transactions: %v", common.ErrDatabase, err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
