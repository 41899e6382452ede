// Package providers integrates accounting platforms. Each provider turns an
// accepted bank transaction into an invoice on the remote system and exposes
// read access to existing records for matching.
package providers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/reconcileai/reconcileai/internal/entity"
)

// InvoiceRequest is the provider-neutral shape of an invoice to create.
// Amount is the canonical signed value: positive creates a receivable,
// negative a payable.
type InvoiceRequest struct {
	Date        entity.Date
	Description string
	Amount      decimal.Decimal
	ContactName string
	AccountCode string
}

// InvoiceResult identifies the created record on the provider side.
type InvoiceResult struct {
	ExternalID    string
	InvoiceNumber string
}

// Invoice is a provider-neutral invoice header. Total carries the canonical
// sign: receivables positive, payables negative.
type Invoice struct {
	ExternalID    string
	InvoiceNumber string
	ContactName   string
	Date          entity.Date
	Total         decimal.Decimal
	Status        string
}

// Provider is one connected accounting platform.
type Provider interface {
	Name() string
	CreateInvoice(ctx context.Context, req InvoiceRequest) (InvoiceResult, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
}
