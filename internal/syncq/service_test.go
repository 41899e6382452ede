package syncq

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/providers"
)

type memQueue struct {
	items map[uuid.UUID]*entity.SyncItem
	order []uuid.UUID
}

func newMemQueue() *memQueue {
	return &memQueue{items: map[uuid.UUID]*entity.SyncItem{}}
}

func (q *memQueue) Enqueue(_ context.Context, item *entity.SyncItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = constants.SyncPending
	}
	cp := *item
	q.items[item.ID] = &cp
	q.order = append(q.order, item.ID)
	return nil
}

func (q *memQueue) Get(_ context.Context, id uuid.UUID) (*entity.SyncItem, error) {
	it, ok := q.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: sync item %s", common.ErrNotFound, id)
	}
	cp := *it
	return &cp, nil
}

func (q *memQueue) ListByStatus(_ context.Context, status constants.SyncStatus) ([]entity.SyncItem, error) {
	var out []entity.SyncItem
	for _, id := range q.order {
		if q.items[id].Status == status {
			out = append(out, *q.items[id])
		}
	}
	return out, nil
}

func (q *memQueue) ClaimPending(_ context.Context, id uuid.UUID) (bool, error) {
	it, ok := q.items[id]
	if !ok || it.Status != constants.SyncPending {
		return false, nil
	}
	it.Status = constants.SyncProcessing
	return true, nil
}

func (q *memQueue) MarkCompleted(_ context.Context, id uuid.UUID, _, externalID string) error {
	it := q.items[id]
	it.Status = constants.SyncCompleted
	it.ExternalID = externalID
	now := time.Now()
	it.CompletedAt = &now
	return nil
}

func (q *memQueue) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	it := q.items[id]
	it.Status = constants.SyncFailed
	it.ErrorMessage = msg
	return nil
}

type memTxs struct {
	txs map[string]*entity.Transaction
}

func (m *memTxs) Get(_ context.Context, id string) (*entity.Transaction, error) {
	tx, ok := m.txs[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return tx, nil
}

func (m *memTxs) ListByStatus(_ context.Context, status constants.TxStatus) ([]entity.Transaction, error) {
	var out []entity.Transaction
	for _, id := range []string{"tx-1", "tx-2", "tx-3", "tx-4"} {
		if tx, ok := m.txs[id]; ok && tx.Status == status {
			out = append(out, *tx)
		}
	}
	return out, nil
}

type stubProvider struct {
	name     string
	requests []providers.InvoiceRequest
	result   providers.InvoiceResult
	err      error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) CreateInvoice(_ context.Context, req providers.InvoiceRequest) (providers.InvoiceResult, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return providers.InvoiceResult{}, p.err
	}
	return p.result, nil
}

func (p *stubProvider) ListInvoices(context.Context) ([]providers.Invoice, error) {
	return nil, nil
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func conf(v float64) *entity.ReconciliationMatch {
	return &entity.ReconciliationMatch{Confidence: v, SuggestedAction: constants.ActionMatch}
}

func fixtures() *memTxs {
	return &memTxs{txs: map[string]*entity.Transaction{
		"tx-1": {
			ID: "tx-1", Date: entity.NewDate(2024, time.May, 2),
			Description: "TRANSFER FROM ACME CORP", Amount: amount("120.00"),
			Type: entity.TxCredit, Status: constants.TxStatusAccepted, Match: conf(0.75),
		},
		"tx-2": {
			ID: "tx-2", Date: entity.NewDate(2024, time.May, 3),
			Description: "Card payment", Amount: amount("-55.10"),
			Type: entity.TxDebit, Status: constants.TxStatusAccepted, Match: conf(0.95),
		},
		"tx-3": {
			ID: "tx-3", Date: entity.NewDate(2024, time.May, 4),
			Description: "POS settlement", Amount: amount("9.99"),
			Type: entity.TxCredit, Status: constants.TxStatusPending, Match: conf(0.4),
		},
		"tx-4": {
			ID: "tx-4", Date: entity.NewDate(2024, time.May, 5),
			Description: "Manual deposit", Amount: amount("300.00"),
			Type: entity.TxCredit, Status: constants.TxStatusAccepted,
		},
	}}
}

func newService(q *memQueue, txs *memTxs, provs ...providers.Provider) *Service {
	return NewService(Config{}, q, txs, provs, nil)
}

func TestEnqueueEligible_FiltersByStatusAndConfidence(t *testing.T) {
	q := newMemQueue()
	xero := &stubProvider{name: "xero"}
	svc := newService(q, fixtures(), xero)

	queued, err := svc.EnqueueEligible(context.Background(), "xero")
	require.NoError(t, err)

	// tx-2 is above the already-synced threshold, tx-3 is not accepted.
	ids := make([]string, 0, len(queued))
	for _, it := range queued {
		ids = append(ids, it.TransactionID)
		assert.Equal(t, "xero", it.Provider)
		assert.Equal(t, "create_invoice", it.Action)
		assert.Equal(t, constants.SyncPending, it.Status)
	}
	assert.Equal(t, []string{"tx-1", "tx-4"}, ids)
}

func TestEnqueueEligible_UnknownProvider(t *testing.T) {
	svc := newService(newMemQueue(), fixtures())

	_, err := svc.EnqueueEligible(context.Background(), "quickbooks")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestAdd_RequiresExistingTransaction(t *testing.T) {
	svc := newService(newMemQueue(), fixtures(), &stubProvider{name: "xero"})

	_, err := svc.Add(context.Background(), AddRequest{TransactionID: "tx-404", Provider: "xero"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)

	item, err := svc.Add(context.Background(), AddRequest{TransactionID: "tx-1", Provider: "xero", AccountCode: "220"})
	require.NoError(t, err)
	assert.Equal(t, "create_invoice", item.Action)
	assert.Equal(t, "220", item.AccountCode)
}

func TestProcess_CompletesThroughProvider(t *testing.T) {
	q := newMemQueue()
	xero := &stubProvider{name: "xero", result: providers.InvoiceResult{ExternalID: "inv-1"}}
	svc := newService(q, fixtures(), xero)

	item, err := svc.Add(context.Background(), AddRequest{TransactionID: "tx-1", Provider: "xero", AccountCode: "220"})
	require.NoError(t, err)

	done, err := svc.Process(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncCompleted, done.Status)
	assert.Equal(t, "inv-1", done.ExternalID)
	require.NotNil(t, done.CompletedAt)

	require.Len(t, xero.requests, 1)
	req := xero.requests[0]
	assert.Equal(t, "ACME CORP", req.ContactName)
	assert.Equal(t, "220", req.AccountCode)
	assert.True(t, req.Amount.Equal(amount("120.00")))
}

func TestProcess_ProviderFailureMarksFailed(t *testing.T) {
	q := newMemQueue()
	xero := &stubProvider{name: "xero", err: fmt.Errorf("rate limited")}
	svc := newService(q, fixtures(), xero)

	item, err := svc.Add(context.Background(), AddRequest{TransactionID: "tx-1", Provider: "xero"})
	require.NoError(t, err)

	done, err := svc.Process(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncFailed, done.Status)
	assert.Contains(t, done.ErrorMessage, "rate limited")
}

func TestProcess_ClaimLostLeavesItemAlone(t *testing.T) {
	q := newMemQueue()
	xero := &stubProvider{name: "xero", result: providers.InvoiceResult{ExternalID: "inv-1"}}
	svc := newService(q, fixtures(), xero)

	item, err := svc.Add(context.Background(), AddRequest{TransactionID: "tx-1", Provider: "xero"})
	require.NoError(t, err)

	first, err := svc.Process(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncCompleted, first.Status)

	// Second processor loses the claim and must not post again.
	second, err := svc.Process(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncCompleted, second.Status)
	assert.Len(t, xero.requests, 1)
}

func TestProcessPending_DrainsMixedResults(t *testing.T) {
	q := newMemQueue()
	xero := &stubProvider{name: "xero", result: providers.InvoiceResult{ExternalID: "inv-ok"}}
	svc := newService(q, fixtures(), xero)

	_, err := svc.Add(context.Background(), AddRequest{TransactionID: "tx-1", Provider: "xero"})
	require.NoError(t, err)
	// A row for a provider that is no longer registered fails in place.
	require.NoError(t, q.Enqueue(context.Background(), &entity.SyncItem{
		TransactionID: "tx-4", Action: "create_invoice", Provider: "zoho",
	}))

	done, err := svc.ProcessPending(context.Background())
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, constants.SyncCompleted, done[0].Status)
	assert.Equal(t, constants.SyncFailed, done[1].Status)
	assert.Contains(t, done[1].ErrorMessage, "zoho")
}

func TestContactFromDescription(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"TRANSFER FROM ACME CORP", "ACME CORP"},
		{"PAYMENT TO GLOBAL SUPPLIES", "GLOBAL SUPPLIES"},
		{"Invoice John Smith march", "John Smith"},
		{"Online Purchase Amazon Prime", "Amazon Prime"},
		{"Invoice Acme march", ""},
		{"pos settlement 4421", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ContactFromDescription(tc.desc), tc.desc)
	}
}
