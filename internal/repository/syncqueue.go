package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
)

// SyncQueueRepository persists the provider sync queue.
type SyncQueueRepository struct {
	pool *pgxpool.Pool
}

func NewSyncQueueRepository(pool *pgxpool.Pool) *SyncQueueRepository {
	return &SyncQueueRepository{pool: pool}
}

const syncColumns = `
	id, transaction_id, action, COALESCE(provider, ''), COALESCE(account_code, ''),
	COALESCE(notes, ''), status, COALESCE(external_id, ''),
	COALESCE(error_message, ''), created_at, updated_at, completed_at`

func scanSyncItem(row pgx.Row) (*entity.SyncItem, error) {
	var it entity.SyncItem
	err := row.Scan(
		&it.ID, &it.TransactionID, &it.Action, &it.Provider, &it.AccountCode,
		&it.Notes, &it.Status, &it.ExternalID, &it.ErrorMessage,
		&it.CreatedAt, &it.UpdatedAt, &it.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *SyncQueueRepository) Enqueue(ctx context.Context, item *entity.SyncItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = constants.SyncPending
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sync_queue (
			id, transaction_id, action, provider, account_code, notes,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.TransactionID, item.Action, nullable(item.Provider),
		nullable(item.AccountCode), nullable(item.Notes), string(item.Status),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: enqueue sync item: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *SyncQueueRepository) Get(ctx context.Context, id uuid.UUID) (*entity.SyncItem, error) {
	it, err := scanSyncItem(r.pool.QueryRow(ctx,
		`SELECT `+syncColumns+` FROM sync_queue WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync item %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get sync item: %v", common.ErrDatabase, err)
	}
	return it, nil
}

func (r *SyncQueueRepository) ListByStatus(ctx context.Context, status constants.SyncStatus) ([]entity.SyncItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+syncColumns+` FROM sync_queue WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("%w: list sync queue: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.SyncItem
	for rows.Next() {
		it, err := scanSyncItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan sync item: %v", common.ErrDatabase, err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// ClaimPending flips a pending item to processing; the bool reports whether
// this call won the claim.
func (r *SyncQueueRepository) ClaimPending(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sync_queue SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		id, string(constants.SyncProcessing), string(constants.SyncPending))
	if err != nil {
		return false, fmt.Errorf("%w: claim sync item: %v", common.ErrDatabase, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted records the provider-side ID and stamps the transaction's
// accounting entry in the same database transaction.
func (r *SyncQueueRepository) MarkCompleted(ctx context.Context, id uuid.UUID, transactionID, externalID string) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	_, err = dbTx.Exec(ctx, `
		UPDATE sync_queue
		SET status = $2, external_id = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		id, string(constants.SyncCompleted), externalID)
	if err != nil {
		return fmt.Errorf("%w: complete sync item: %v", common.ErrDatabase, err)
	}
	_, err = dbTx.Exec(ctx,
		`UPDATE transactions SET accounting_entry_id = $1 WHERE id = $2`,
		externalID, transactionID)
	if err != nil {
		return fmt.Errorf("%w: stamp transaction: %v", common.ErrDatabase, err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit sync completion: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *SyncQueueRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE sync_queue
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1`,
		id, string(constants.SyncFailed), errorMessage)
	if err != nil {
		return fmt.Errorf("%w: fail sync item: %v", common.ErrDatabase, err)
	}
	return nil
}
