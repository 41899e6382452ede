// Package syncq turns reviewer-accepted transactions into accounting entries
// on a connected provider, through a persistent queue with claim semantics so
// concurrent processors never double-post an invoice.
package syncq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/providers"
	"github.com/reconcileai/reconcileai/internal/review"
)

// Default action recorded on queue rows created from accepted transactions.
const actionCreateInvoice = "create_invoice"

// QueueStore is the persistence surface for queue rows.
// *repository.SyncQueueRepository satisfies it.
type QueueStore interface {
	Enqueue(ctx context.Context, item *entity.SyncItem) error
	Get(ctx context.Context, id uuid.UUID) (*entity.SyncItem, error)
	ListByStatus(ctx context.Context, status constants.SyncStatus) ([]entity.SyncItem, error)
	ClaimPending(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, transactionID, externalID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// TransactionStore is the read surface the service needs for transactions.
// *repository.TransactionRepository satisfies it.
type TransactionStore interface {
	Get(ctx context.Context, id string) (*entity.Transaction, error)
	ListByStatus(ctx context.Context, status constants.TxStatus) ([]entity.Transaction, error)
}

// Config tunes queue behavior.
type Config struct {
	// AlreadySynced is the confidence at or above which an accepted match is
	// assumed to already exist on the provider side and is kept off the queue.
	AlreadySynced float64
}

// Service owns the sync queue lifecycle: eligibility, enqueueing, and
// processing items against the registered providers.
type Service struct {
	cfg    Config
	queue  QueueStore
	txs    TransactionStore
	byName map[string]providers.Provider
	log    *slog.Logger
}

func NewService(cfg Config, queue QueueStore, txs TransactionStore, provs []providers.Provider, logger *slog.Logger) *Service {
	if cfg.AlreadySynced == 0 {
		cfg.AlreadySynced = 0.9
	}
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]providers.Provider, len(provs))
	for _, p := range provs {
		byName[p.Name()] = p
	}
	return &Service{cfg: cfg, queue: queue, txs: txs, byName: byName, log: logger}
}

// AddRequest enqueues one transaction explicitly.
type AddRequest struct {
	TransactionID string
	Action        string
	Provider      string
	AccountCode   string
	Notes         string
}

// Add places a single transaction on the queue. The transaction must exist;
// eligibility is the caller's judgment here, unlike EnqueueEligible.
func (s *Service) Add(ctx context.Context, req AddRequest) (*entity.SyncItem, error) {
	if req.TransactionID == "" {
		return nil, fmt.Errorf("%w: transactionId is required", common.ErrInvalidInput)
	}
	if req.Provider != "" {
		if _, ok := s.byName[req.Provider]; !ok {
			return nil, fmt.Errorf("%w: unknown provider %q", common.ErrInvalidInput, req.Provider)
		}
	}
	if _, err := s.txs.Get(ctx, req.TransactionID); err != nil {
		return nil, err
	}

	action := req.Action
	if action == "" {
		action = actionCreateInvoice
	}
	item := &entity.SyncItem{
		TransactionID: req.TransactionID,
		Action:        action,
		Provider:      req.Provider,
		AccountCode:   req.AccountCode,
		Notes:         req.Notes,
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		return nil, err
	}
	s.log.Info("syncq.add.ok", "item_id", item.ID, "transaction_id", req.TransactionID, "provider", req.Provider)
	return item, nil
}

// EnqueueEligible queues every accepted transaction whose match confidence
// does not already imply a provider-side record.
func (s *Service) EnqueueEligible(ctx context.Context, provider string) ([]entity.SyncItem, error) {
	if _, ok := s.byName[provider]; !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", common.ErrInvalidInput, provider)
	}

	accepted, err := s.txs.ListByStatus(ctx, constants.TxStatusAccepted)
	if err != nil {
		return nil, err
	}

	var queued []entity.SyncItem
	for _, tx := range accepted {
		var conf *float64
		if tx.Match != nil {
			c := tx.Match.Confidence
			conf = &c
		}
		if !review.SyncEligible(tx.Status, conf, s.cfg.AlreadySynced) {
			continue
		}
		item := &entity.SyncItem{
			TransactionID: tx.ID,
			Action:        actionCreateInvoice,
			Provider:      provider,
		}
		if err := s.queue.Enqueue(ctx, item); err != nil {
			return queued, err
		}
		queued = append(queued, *item)
	}
	s.log.Info("syncq.enqueue_eligible.ok",
		"provider", provider, "accepted", len(accepted), "queued", len(queued))
	return queued, nil
}

// List returns queue rows in the given state.
func (s *Service) List(ctx context.Context, status constants.SyncStatus) ([]entity.SyncItem, error) {
	return s.queue.ListByStatus(ctx, status)
}

// Process pushes one pending item to its provider. Losing the pending claim
// is not an error: another processor got there first and the current row is
// returned as is.
func (s *Service) Process(ctx context.Context, id uuid.UUID) (*entity.SyncItem, error) {
	start := time.Now()

	item, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	won, err := s.queue.ClaimPending(ctx, id)
	if err != nil {
		return nil, err
	}
	if !won {
		s.log.Info("syncq.process.claim_lost", "item_id", id, "status", item.Status)
		return item, nil
	}

	externalID, procErr := s.push(ctx, item)
	if procErr != nil {
		if err := s.queue.MarkFailed(ctx, id, procErr.Error()); err != nil {
			return nil, err
		}
		s.log.Error("syncq.process.failed",
			"item_id", id, "provider", item.Provider, "error", procErr,
			"elapsed_ms", time.Since(start).Milliseconds())
		return s.queue.Get(ctx, id)
	}

	if err := s.queue.MarkCompleted(ctx, id, item.TransactionID, externalID); err != nil {
		return nil, err
	}
	s.log.Info("syncq.process.ok",
		"item_id", id, "provider", item.Provider, "external_id", externalID,
		"elapsed_ms", time.Since(start).Milliseconds())
	return s.queue.Get(ctx, id)
}

func (s *Service) push(ctx context.Context, item *entity.SyncItem) (string, error) {
	prov, ok := s.byName[item.Provider]
	if !ok {
		return "", fmt.Errorf("%w: no provider registered for %q", common.ErrInvalidInput, item.Provider)
	}

	tx, err := s.txs.Get(ctx, item.TransactionID)
	if err != nil {
		return "", err
	}

	res, err := prov.CreateInvoice(ctx, providers.InvoiceRequest{
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      tx.Amount,
		ContactName: ContactFromDescription(tx.Description),
		AccountCode: item.AccountCode,
	})
	if err != nil {
		return "", err
	}
	return res.ExternalID, nil
}

// ProcessPending drains the pending queue sequentially and reports the final
// state of every item it touched. Individual failures are recorded on their
// rows and do not stop the drain.
func (s *Service) ProcessPending(ctx context.Context) ([]entity.SyncItem, error) {
	pending, err := s.queue.ListByStatus(ctx, constants.SyncPending)
	if err != nil {
		return nil, err
	}

	out := make([]entity.SyncItem, 0, len(pending))
	for _, it := range pending {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		done, err := s.Process(ctx, it.ID)
		if err != nil {
			return out, err
		}
		out = append(out, *done)
	}
	return out, nil
}
