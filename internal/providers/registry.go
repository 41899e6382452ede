package providers

import (
	"context"
	"fmt"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
)

// Registry routes by provider name and adapts provider invoices into
// secondary-side transactions for complete reconciliation against live
// accounting data.
type Registry struct {
	byName map[string]Provider
}

func NewRegistry(provs ...Provider) *Registry {
	byName := make(map[string]Provider, len(provs))
	for _, p := range provs {
		byName[p.Name()] = p
	}
	return &Registry{byName: byName}
}

func (r *Registry) Lookup(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Transactions fetches the named provider's invoices and converts them into
// transaction rows, ID'd {provider}-{n} in fetch order.
func (r *Registry) Transactions(ctx context.Context, name string) ([]entity.Transaction, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", common.ErrInvalidInput, name)
	}
	invs, err := p.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}

	txs := make([]entity.Transaction, 0, len(invs))
	for i, inv := range invs {
		amt, typ := entity.NormalizeSigned(inv.Total, "")
		desc := "Invoice " + inv.InvoiceNumber
		if inv.ContactName != "" {
			desc += " - " + inv.ContactName
		}
		txs = append(txs, entity.Transaction{
			ID:          fmt.Sprintf("%s-%d", name, i+1),
			Date:        inv.Date,
			Description: desc,
			Amount:      amt,
			Type:        typ,
			Status:      constants.TxStatusPending,
		})
	}
	return txs, nil
}
