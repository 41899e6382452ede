package recon

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/extract"
	"github.com/reconcileai/reconcileai/internal/llm"
	"github.com/reconcileai/reconcileai/internal/prompt"
)

type stubChat struct {
	reply string
	err   error
	calls int
}

func (s *stubChat) Chat(_ context.Context, _, _ string, _ llm.ChatOptions) (string, error) {
	s.calls++
	return s.reply, s.err
}

func newOrchestrator(chat llm.ChatClient) *Orchestrator {
	prompts := prompt.NewBuilder(0)
	extractor := extract.NewExtractor(extract.Config{}, nil, chat, prompts, nil)
	return NewOrchestrator(extractor, chat, prompts, NewInterpreter(DefaultPolicy(), nil), nil)
}

func bankCSV() extract.Document {
	return extract.Document{
		Name:     "bank.csv",
		MimeType: constants.MimeCSV,
		Data: []byte("Date,Description,Amount\n" +
			"2024-05-01,DEPOSIT,100.00\n" +
			"2024-05-02,BANK FEE,-5.00\n"),
	}
}

func secondaryCSV() extract.Document {
	return extract.Document{
		Name:     "invoices.csv",
		MimeType: constants.MimeCSV,
		Data: []byte("Date,Description,Amount\n" +
			"2024-05-01,Invoice INV-001,100.00\n"),
	}
}

func TestRun_CompleteWithoutSecondary(t *testing.T) {
	chat := &stubChat{reply: "irrelevant"}
	o := newOrchestrator(chat)

	res, err := o.Run(context.Background(), Request{Bank: bankCSV(), Scope: constants.ScopeComplete})
	require.NoError(t, err)

	require.Len(t, res.BankTransactions, 2)
	for _, tx := range res.BankTransactions {
		assert.Equal(t, constants.TxStatusPending, tx.Status)
		require.NotNil(t, tx.Match)
		assert.Zero(t, tx.Match.Confidence)
		assert.Contains(t, []constants.SuggestedAction{constants.ActionFlag, constants.ActionDefer}, tx.Match.SuggestedAction)
	}
	// Nothing to match against, so no AI call is made.
	assert.Zero(t, chat.calls)
}

func TestRun_CompleteWithSecondary(t *testing.T) {
	sec := secondaryCSV()
	chat := &stubChat{reply: `[{"bankTransactionId":"bank-1","secondaryTransactionId":"secondary-1","confidence":0.95,"explanation":"exact amount+date"}]`}
	o := newOrchestrator(chat)

	res, err := o.Run(context.Background(), Request{Bank: bankCSV(), Secondary: &sec, Scope: constants.ScopeComplete})
	require.NoError(t, err)

	assert.Equal(t, 1, chat.calls)
	require.Len(t, res.BankTransactions, 2)
	assert.True(t, res.BankTransactions[0].IsMatched)
	require.NotNil(t, res.BankTransactions[0].Match.AccountingEntry)
	assert.Equal(t, "secondary-1", res.BankTransactions[0].Match.AccountingEntry.ID)
	assert.False(t, res.BankTransactions[1].IsMatched)
	assert.Len(t, res.SecondaryTransactions, 1)
}

func TestRun_CompleteWithProviderRows(t *testing.T) {
	chat := &stubChat{reply: `[{"bankTransactionId":"bank-1","secondaryTransactionId":"xero-1","confidence":0.9,"explanation":"same amount"}]`}
	o := newOrchestrator(chat)

	rows := []entity.Transaction{{
		ID:          "xero-1",
		Description: "Invoice INV-0001 - Acme Ltd",
		Amount:      decimal.RequireFromString("100.00"),
		Type:        entity.TxCredit,
		Status:      constants.TxStatusPending,
	}}
	res, err := o.Run(context.Background(), Request{Bank: bankCSV(), SecondaryRows: rows, Scope: constants.ScopeComplete})
	require.NoError(t, err)

	assert.Equal(t, 1, chat.calls)
	require.Len(t, res.BankTransactions, 2)
	assert.True(t, res.BankTransactions[0].IsMatched)
	assert.Equal(t, "xero-1", res.BankTransactions[0].Match.AccountingEntry.ID)
	assert.Equal(t, rows, res.SecondaryTransactions)
}

func TestRun_SpecificRequiresSecondary(t *testing.T) {
	o := newOrchestrator(&stubChat{})
	_, err := o.Run(context.Background(), Request{Bank: bankCSV(), Scope: constants.ScopeSpecific, Category: constants.CategorySales})
	assert.ErrorIs(t, err, common.ErrMissingSecondary)
}

func TestRun_SpecificRequiresCategory(t *testing.T) {
	sec := secondaryCSV()
	o := newOrchestrator(&stubChat{})
	_, err := o.Run(context.Background(), Request{Bank: bankCSV(), Secondary: &sec, Scope: constants.ScopeSpecific})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRun_AIFailureDegradesToFallback(t *testing.T) {
	sec := secondaryCSV()
	chat := &stubChat{err: errors.New("request timed out")}
	o := newOrchestrator(chat)

	res, err := o.Run(context.Background(), Request{Bank: bankCSV(), Secondary: &sec, Scope: constants.ScopeComplete})
	require.NoError(t, err)

	require.Len(t, res.BankTransactions, 2)
	for _, tx := range res.BankTransactions {
		require.NotNil(t, tx.Match)
		assert.InDelta(t, 0.3, tx.Match.Confidence, 1e-9)
		assert.Equal(t, constants.ActionDefer, tx.Match.SuggestedAction)
	}
}

func TestRun_UnreadableBankFileIsHardError(t *testing.T) {
	o := newOrchestrator(&stubChat{})
	_, err := o.Run(context.Background(), Request{
		Bank:  extract.Document{Name: "bank.png", MimeType: "image/png"},
		Scope: constants.ScopeComplete,
	})
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)
}
