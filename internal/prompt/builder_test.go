package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/entity"
)

func sampleTransactions() ([]entity.Transaction, []entity.Transaction) {
	bank := []entity.Transaction{
		{
			ID:          "bank-1",
			Date:        entity.NewDate(2024, time.May, 15),
			Description: "POS DEPOSIT 0515",
			Amount:      decimal.RequireFromString("350.00"),
			Type:        entity.TxCredit,
		},
		{
			ID:          "bank-2",
			Date:        entity.NewDate(2024, time.May, 16),
			Description: "CHECK 1042 OFFICE SUPPLY CO",
			Amount:      decimal.RequireFromString("-75.50"),
			Type:        entity.TxDebit,
		},
	}
	secondary := []entity.Transaction{
		{
			ID:          "pos-1",
			Date:        entity.NewDate(2024, time.May, 15),
			Description: "Daily POS sales",
			Amount:      decimal.RequireFromString("350.00"),
			Type:        entity.TxCredit,
		},
	}
	return bank, secondary
}

func TestExtraction_CategoryInstructionAndText(t *testing.T) {
	b := NewBuilder(0)
	system, user, err := b.Extraction(constants.CategoryExpense, "Vendor A 75.50 2024-05-16")
	require.NoError(t, err)

	assert.Contains(t, system, "expense documents")
	assert.Contains(t, user, "Vendor A 75.50 2024-05-16")
	assert.Contains(t, user, `"type": "debit"`)
}

func TestExtraction_UnknownCategoryFallsBackToGeneral(t *testing.T) {
	b := NewBuilder(0)
	_, user, err := b.Extraction(constants.Category("mystery"), "some text")
	require.NoError(t, err)
	assert.Contains(t, user, "transaction-like entries")
}

func TestCompleteMatching_ListsBothSides(t *testing.T) {
	bank, secondary := sampleTransactions()
	b := NewBuilder(0)

	system, user, err := b.CompleteMatching(bank, secondary)
	require.NoError(t, err)

	assert.Contains(t, system, "reconciling financial transactions")
	assert.Contains(t, user, "BANK TRANSACTIONS:")
	assert.Contains(t, user, "SECONDARY DOCUMENT TRANSACTIONS:")
	assert.Contains(t, user, "ID: bank-1")
	assert.Contains(t, user, "ID: pos-1")
	assert.Contains(t, user, "bankTransactionId")
}

func TestCompleteMatching_PrintsMagnitudeNotSign(t *testing.T) {
	bank, secondary := sampleTransactions()
	b := NewBuilder(0)

	_, user, err := b.CompleteMatching(bank, secondary)
	require.NoError(t, err)

	assert.Contains(t, user, "Amount: $75.50, Type: debit")
	assert.NotContains(t, user, "$-75.50")
}

func TestSpecificMatching_CategoryRules(t *testing.T) {
	bank, secondary := sampleTransactions()
	b := NewBuilder(0)

	system, user, err := b.SpecificMatching(bank, secondary, constants.CategoryPOS)
	require.NoError(t, err)

	assert.Contains(t, system, "pos documents")
	assert.Contains(t, user, "POS TRANSACTIONS:")
	assert.Contains(t, user, "end-of-day deposit timing")
}

func TestBuilder_Deterministic(t *testing.T) {
	bank, secondary := sampleTransactions()
	b := NewBuilder(0)

	_, first, err := b.SpecificMatching(bank, secondary, constants.CategorySales)
	require.NoError(t, err)
	_, second, err := b.SpecificMatching(bank, secondary, constants.CategorySales)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuilder_TooLarge(t *testing.T) {
	b := NewBuilder(256)
	_, _, err := b.Extraction(constants.CategoryGeneral, strings.Repeat("x", 1024))
	assert.ErrorIs(t, err, ErrPromptTooLarge)
}

func TestBuilder_BudgetAppliesToMatching(t *testing.T) {
	bank, secondary := sampleTransactions()
	b := NewBuilder(64)
	_, _, err := b.CompleteMatching(bank, secondary)
	assert.ErrorIs(t, err, ErrPromptTooLarge)
}
