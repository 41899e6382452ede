package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
)

// ReportRepository persists reconciliation report snapshots. Snapshots are
// immutable after insert except for name, favorite flag, and tags.
type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Create(ctx context.Context, rep *entity.ReconciliationReport) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = time.Now().UTC()
	}
	if rep.Tags == nil {
		rep.Tags = []string{}
	}

	summary, err := json.Marshal(rep.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	txData, err := json.Marshal(rep.TransactionData)
	if err != nil {
		return fmt.Errorf("encode transaction data: %w", err)
	}
	metadata, err := json.Marshal(rep.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO reconciliation_reports (
			id, report_name, report_type, bank_statement_id, session_id,
			status, summary_data, transaction_data, reconciliation_metadata,
			generated_by, generated_at, is_favorite, tags,
			original_filename, file_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rep.ID, rep.ReportName, rep.ReportType, rep.BankStatementID, rep.SessionID,
		rep.Status, summary, txData, metadata,
		rep.GeneratedBy, rep.GeneratedAt, rep.IsFavorite, rep.Tags,
		nullable(rep.OriginalName), rep.FileSize,
	)
	if err != nil {
		return fmt.Errorf("%w: insert report: %v", common.ErrDatabase, err)
	}
	return nil
}

// Get loads a full snapshot and stamps last_accessed.
func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ReconciliationReport, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reconciliation_reports SET last_accessed = NOW()
		WHERE id = $1
		RETURNING id, report_name, report_type, bank_statement_id, session_id,
		          status, summary_data, transaction_data, reconciliation_metadata,
		          generated_by, generated_at, last_accessed, is_favorite, tags,
		          COALESCE(original_filename, ''), COALESCE(file_size, 0)`, id)

	rep, err := scanReport(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: report %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get report: %v", common.ErrDatabase, err)
	}
	return rep, nil
}

// ReportQuery filters and pages the report listing.
type ReportQuery struct {
	Limit         int
	Offset        int
	ReportType    string
	Search        string
	FavoritesOnly bool
}

// List returns report headers (no transaction payload), newest first.
func (r *ReportRepository) List(ctx context.Context, q ReportQuery) ([]entity.ReconciliationReport, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	query := `
		SELECT id, report_name, report_type, bank_statement_id, session_id,
		       status, summary_data, NULL::jsonb, reconciliation_metadata,
		       generated_by, generated_at, last_accessed, is_favorite, tags,
		       COALESCE(original_filename, ''), COALESCE(file_size, 0)
		FROM reconciliation_reports`

	var conds []string
	var args []any
	if q.FavoritesOnly {
		conds = append(conds, "is_favorite")
	}
	if q.ReportType != "" {
		args = append(args, q.ReportType)
		conds = append(conds, fmt.Sprintf("report_type = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		conds = append(conds, fmt.Sprintf("report_name ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY generated_at DESC LIMIT $%d", len(args))
	args = append(args, q.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list reports: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.ReconciliationReport
	for rows.Next() {
		rep, err := scanReport(rows, false)
		if err != nil {
			return nil, fmt.Errorf("%w: scan report: %v", common.ErrDatabase, err)
		}
		out = append(out, *rep)
	}
	return out, rows.Err()
}

// UpdateMutable changes the only editable fields of a snapshot.
func (r *ReportRepository) UpdateMutable(ctx context.Context, id uuid.UUID, name string, isFavorite bool, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE reconciliation_reports
		SET report_name = $2, is_favorite = $3, tags = $4
		WHERE id = $1`,
		id, name, isFavorite, tags)
	if err != nil {
		return fmt.Errorf("%w: update report: %v", common.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: report %s", common.ErrNotFound, id)
	}
	return nil
}

func (r *ReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reconciliation_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete report: %v", common.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: report %s", common.ErrNotFound, id)
	}
	return nil
}

func scanReport(row pgx.Row, withTransactions bool) (*entity.ReconciliationReport, error) {
	var (
		rep      entity.ReconciliationReport
		summary  []byte
		txData   []byte
		metadata []byte
	)
	err := row.Scan(
		&rep.ID, &rep.ReportName, &rep.ReportType, &rep.BankStatementID, &rep.SessionID,
		&rep.Status, &summary, &txData, &metadata,
		&rep.GeneratedBy, &rep.GeneratedAt, &rep.LastAccessed, &rep.IsFavorite, &rep.Tags,
		&rep.OriginalName, &rep.FileSize,
	)
	if err != nil {
		return nil, err
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &rep.Summary); err != nil {
			return nil, fmt.Errorf("decode summary: %w", err)
		}
	}
	if withTransactions && len(txData) > 0 {
		if err := json.Unmarshal(txData, &rep.TransactionData); err != nil {
			return nil, fmt.Errorf("decode transaction data: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rep.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &rep, nil
}
