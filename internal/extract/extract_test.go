package extract

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/llm"
	"github.com/reconcileai/reconcileai/internal/ocr"
	"github.com/reconcileai/reconcileai/internal/prompt"
)

type stubAnalyzer struct {
	lines []string
	err   error
}

func (s stubAnalyzer) AnalyzeDocument(_ context.Context, _ []byte) (ocr.AnalysisResult, error) {
	if s.err != nil {
		return ocr.AnalysisResult{}, s.err
	}
	return ocr.AnalysisResult{Lines: s.lines, Pages: 1}, nil
}

type stubChat struct {
	reply string
	err   error
	calls int
}

func (s *stubChat) Chat(_ context.Context, _, _ string, _ llm.ChatOptions) (string, error) {
	s.calls++
	return s.reply, s.err
}

func newTestExtractor(analyzer ocr.DocumentAnalyzer, chat llm.ChatClient) *Extractor {
	return NewExtractor(Config{}, analyzer, chat, prompt.NewBuilder(0), slog.Default())
}

func TestParseCSV_AmountColumn(t *testing.T) {
	data := []byte("Date,Description,Amount\n" +
		"2024-05-15,POS DEPOSIT,350.00\n" +
		"2024-05-16,CHECK 1042,-75.50\n" +
		"2024-05-17,ZERO LINE,0.00\n")

	e := newTestExtractor(stubAnalyzer{}, &stubChat{})
	txs, err := e.Parse(context.Background(), Document{Data: data, Name: "bank.csv", MimeType: constants.MimeCSV, IDPrefix: "bank"})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "bank-1", txs[0].ID)
	assert.Equal(t, entity.TxCredit, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("350.00")))

	assert.Equal(t, entity.TxDebit, txs[1].Type)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("-75.50")))
	assert.Equal(t, constants.TxStatusPending, txs[1].Status)
}

func TestParseCSV_NegligibleAmountBoundary(t *testing.T) {
	data := []byte("Date,Description,Amount\n" +
		"2024-05-15,ROUNDING,0.001\n" +
		"2024-05-16,INTEREST,0.01\n" +
		"2024-05-17,MICRO CREDIT,0.02\n" +
		"2024-05-18,MICRO DEBIT,-0.02\n")

	e := newTestExtractor(stubAnalyzer{}, &stubChat{})
	txs, err := e.Parse(context.Background(), Document{Data: data, Name: "bank.csv", MimeType: constants.MimeCSV, IDPrefix: "bank"})
	require.NoError(t, err)

	// Magnitudes at or below 0.01 drop; anything above survives.
	require.Len(t, txs, 2)
	assert.Equal(t, "MICRO CREDIT", txs[0].Description)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, "MICRO DEBIT", txs[1].Description)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("-0.02")))
}

func TestParseCSV_DebitCreditColumns(t *testing.T) {
	data := []byte("Txn Date,Narration,Debit,Credit\n" +
		"15/05/2024,UPI PAYMENT,250.00,\n" +
		"16/05/2024,SALARY CREDIT,,1200.00\n")

	e := newTestExtractor(stubAnalyzer{}, &stubChat{})
	txs, err := e.Parse(context.Background(), Document{Data: data, MimeType: constants.MimeCSV})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, entity.TxDebit, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("-250.00")))
	assert.Equal(t, entity.TxCredit, txs[1].Type)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("1200.00")))
}

func TestParseCSV_CurrencyNoiseAndParens(t *testing.T) {
	data := []byte("Date,Description,Amount\n" +
		"2024-05-15,\"REFUND, STORE\",\"$1,202.50\"\n" +
		"2024-05-16,FEE REVERSAL,(45.00)\n")

	e := newTestExtractor(stubAnalyzer{}, &stubChat{})
	txs, err := e.Parse(context.Background(), Document{Data: data, MimeType: constants.MimeCSV})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("1202.50")))
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("-45.00")))
}

func TestParse_UnsupportedMime(t *testing.T) {
	e := newTestExtractor(stubAnalyzer{}, &stubChat{})
	_, err := e.Parse(context.Background(), Document{MimeType: "image/png"})
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)
}

func TestParsePDF_LineHeuristics(t *testing.T) {
	analyzer := stubAnalyzer{lines: []string{
		"STATEMENT OF ACCOUNT",
		"05/15/2024 POS DEPOSIT 350.00 4,350.00",
		"05/16/2024 CHECK 1042 OFFICE SUPPLY (75.50) 4,274.50",
		"Page 1 of 2",
	}}

	e := newTestExtractor(analyzer, &stubChat{})
	txs, err := e.Parse(context.Background(), Document{MimeType: constants.MimePDF, IDPrefix: "bank"})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "POS DEPOSIT", txs[0].Description)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("350.00")))
	assert.Equal(t, "CHECK 1042 OFFICE SUPPLY", txs[1].Description)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("-75.50")))
}

func TestParseCategory_AIOnlyUsesChat(t *testing.T) {
	chat := &stubChat{reply: `[
		{"date":"2024-12-31","description":"Talabat - Restaurant Credit Card Sales","amount":2678.65,"type":"credit"},
		{"date":"2024-12-31","description":"Talabat - TGO Cash Sales","amount":"240.40","type":"credit"}
	]`}
	analyzer := stubAnalyzer{lines: []string{
		"Talabat Account Statement for restaurant partner 881204",
		"12/31/2024 INV-1 Restaurant Credit Card Sales -2,678.650",
	}}

	e := newTestExtractor(analyzer, chat)
	txs := e.ParseCategory(context.Background(), Document{MimeType: constants.MimePDF, Name: "talabat.pdf"}, constants.CategoryDelivery)

	require.Len(t, txs, 2)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, "delivery-1", txs[0].ID)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("2678.65")))
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("240.40")))
}

func TestParseCategory_StructuredWinsWhenRich(t *testing.T) {
	data := []byte("Date,Description,Amount\n" +
		"2024-05-01,Invoice 1,100.00\n" +
		"2024-05-02,Invoice 2,200.00\n" +
		"2024-05-03,Invoice 3,300.00\n" +
		"2024-05-04,Invoice 4,400.00\n")

	chat := &stubChat{reply: `[]`}
	e := newTestExtractor(stubAnalyzer{}, chat)
	txs := e.ParseCategory(context.Background(), Document{Data: data, MimeType: constants.MimeCSV}, constants.CategoryAccounting)

	assert.Len(t, txs, 4)
	assert.Zero(t, chat.calls)
}

func TestParseCategory_ThinStructuredFallsBackToAI(t *testing.T) {
	// Two rows is below the floor; the AI path should run with the rendered
	// row text.
	data := []byte("Date,Description,Amount\n" +
		"2024-05-01,Invoice 1,100.00\n" +
		"2024-05-02,Invoice 2,200.00\n")

	chat := &stubChat{reply: `[
		{"date":"2024-05-01","description":"Invoice INV-001","amount":100.00,"type":"credit"},
		{"date":"2024-05-02","description":"Invoice INV-002","amount":200.00,"type":"credit"},
		{"date":"2024-05-03","description":"Invoice INV-003","amount":300.00,"type":"credit"}
	]`}
	e := newTestExtractor(stubAnalyzer{}, chat)
	txs := e.ParseCategory(context.Background(), Document{Data: data, MimeType: constants.MimeCSV}, constants.CategoryAccounting)

	require.Len(t, txs, 3)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, "Invoice INV-003", txs[2].Description)
}

func TestParseCategory_AIFailureKeepsStructuredRows(t *testing.T) {
	data := []byte("Date,Description,Amount\n" +
		"2024-05-01,Invoice 1,100.00\n" +
		"2024-05-02,Invoice 2,200.00\n")

	chat := &stubChat{err: errors.New("model unavailable")}
	e := newTestExtractor(stubAnalyzer{}, chat)
	txs := e.ParseCategory(context.Background(), Document{Data: data, MimeType: constants.MimeCSV}, constants.CategoryAccounting)

	assert.Len(t, txs, 2)
}

func TestParseCategory_AIOnlyFailureDegradesToEmpty(t *testing.T) {
	chat := &stubChat{err: errors.New("model unavailable")}
	analyzer := stubAnalyzer{lines: []string{"Talabat Account Statement with plenty of surrounding text to pass the text floor"}}

	e := newTestExtractor(analyzer, chat)
	txs := e.ParseCategory(context.Background(), Document{MimeType: constants.MimePDF}, constants.CategoryPOS)
	assert.Empty(t, txs)
}
