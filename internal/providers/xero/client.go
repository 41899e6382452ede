package xero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/providers"
	"github.com/reconcileai/reconcileai/internal/repository"
)

// Default revenue and expense account codes used when the queue item does not
// carry one.
const (
	accountCodeRevenue = "200"
	accountCodeExpense = "400"
)

func (c *Client) Name() string { return constants.ProviderXero }

// token returns a usable access token, refreshing through the OAuth endpoint
// when the stored one has expired. A missing or unrefreshable token means the
// user has to reconnect the Xero organisation.
func (c *Client) token(ctx context.Context) (*repository.ProviderToken, error) {
	stored, err := c.tokens.Get(ctx, constants.ProviderXero)
	if err != nil {
		return nil, fmt.Errorf("%w: xero: %v", common.ErrReconnectRequired, err)
	}
	if stored.Valid() {
		return stored, nil
	}
	return c.refresh(ctx, stored)
}

func (c *Client) refresh(ctx context.Context, stored *repository.ProviderToken) (*repository.ProviderToken, error) {
	if stored.RefreshToken == "" {
		return nil, fmt.Errorf("%w: xero: no refresh token", common.ErrReconnectRequired)
	}

	start := time.Now()
	src := c.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		c.log.Error("xero.token.refresh_error", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: xero: refresh failed: %v", common.ErrReconnectRequired, err)
	}

	next := &repository.ProviderToken{
		Provider:     constants.ProviderXero,
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		ExpiresAt:    fresh.Expiry,
		TenantID:     stored.TenantID,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = stored.RefreshToken
	}
	if err := c.tokens.Upsert(ctx, next); err != nil {
		return nil, err
	}
	c.log.Info("xero.token.refresh_ok",
		"expires_at", next.ExpiresAt,
		"elapsed_ms", time.Since(start).Milliseconds())
	return next, nil
}

// do performs an authenticated API call. A 401 triggers one forced refresh
// and a single retry; a second 401 surfaces as a reconnect condition.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	raw, status, err := c.send(ctx, method, path, payload, tok)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		tok, err = c.refresh(ctx, tok)
		if err != nil {
			return nil, err
		}
		raw, status, err = c.send(ctx, method, path, payload, tok)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: xero: token rejected after refresh", common.ErrReconnectRequired)
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("xero api %s %s: status %d: %s", method, path, status, truncate(raw, 512))
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any, tok *repository.ProviderToken) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal xero request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build xero request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Xero-tenant-id", tok.TenantID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("xero request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read xero response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// Contact is a Xero contact summary.
type Contact struct {
	ContactID    string `json:"ContactID"`
	Name         string `json:"Name"`
	EmailAddress string `json:"EmailAddress"`
}

// Contacts lists the tenant's contacts.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api.xro/2.0/Contacts", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Contacts []Contact `json:"Contacts"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode xero contacts: %w", err)
	}
	return out.Contacts, nil
}

// InvoiceSummary is a Xero invoice header.
type InvoiceSummary struct {
	InvoiceID     string          `json:"InvoiceID"`
	InvoiceNumber string          `json:"InvoiceNumber"`
	Type          string          `json:"Type"`
	Status        string          `json:"Status"`
	Total         decimal.Decimal `json:"Total"`
	Contact       Contact         `json:"Contact"`
	DateString    string          `json:"DateString"`
}

// Invoices lists the tenant's invoices.
func (c *Client) Invoices(ctx context.Context) ([]InvoiceSummary, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api.xro/2.0/Invoices", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Invoices []InvoiceSummary `json:"Invoices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode xero invoices: %w", err)
	}
	return out.Invoices, nil
}

// ListInvoices returns the tenant's invoices in the provider-neutral shape.
// ACCPAY totals come back negative so the sign convention holds downstream.
func (c *Client) ListInvoices(ctx context.Context) ([]providers.Invoice, error) {
	summaries, err := c.Invoices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]providers.Invoice, 0, len(summaries))
	for _, inv := range summaries {
		var date entity.Date
		if s := inv.DateString; s != "" {
			if i := strings.IndexByte(s, 'T'); i > 0 {
				s = s[:i]
			}
			date, _ = entity.ParseDate(s)
		}
		total := inv.Total
		if inv.Type == "ACCPAY" {
			total = total.Abs().Neg()
		}
		out = append(out, providers.Invoice{
			ExternalID:    inv.InvoiceID,
			InvoiceNumber: inv.InvoiceNumber,
			ContactName:   inv.Contact.Name,
			Date:          date,
			Total:         total,
			Status:        inv.Status,
		})
	}
	return out, nil
}

// CreateInvoice posts one invoice. Positive amounts become receivables
// (ACCREC), negative amounts payables (ACCPAY).
func (c *Client) CreateInvoice(ctx context.Context, req providers.InvoiceRequest) (providers.InvoiceResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	invoiceType := "ACCREC"
	accountCode := req.AccountCode
	if req.Amount.Sign() < 0 {
		invoiceType = "ACCPAY"
		if accountCode == "" {
			accountCode = accountCodeExpense
		}
	} else if accountCode == "" {
		accountCode = accountCodeRevenue
	}

	contact := req.ContactName
	if contact == "" {
		contact = "Unknown Contact"
	}

	payload := map[string]any{
		"Invoices": []map[string]any{{
			"Type":    invoiceType,
			"Contact": map[string]any{"Name": contact},
			"Date":    req.Date.String(),
			"DueDate": req.Date.String(),
			"LineItems": []map[string]any{{
				"Description": req.Description,
				"Quantity":    1,
				"UnitAmount":  req.Amount.Abs().InexactFloat64(),
				"AccountCode": accountCode,
			}},
			"Status": "AUTHORISED",
		}},
	}

	c.log.Info("xero.invoice.create.start",
		"req_id", rid, "type", invoiceType, "contact", contact,
		"amount", req.Amount.Abs().StringFixed(2))

	raw, err := c.do(ctx, http.MethodPost, "/api.xro/2.0/Invoices", payload)
	if err != nil {
		c.log.Error("xero.invoice.create.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return providers.InvoiceResult{}, err
	}

	var out struct {
		Invoices []InvoiceSummary `json:"Invoices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return providers.InvoiceResult{}, fmt.Errorf("decode xero invoice response: %w", err)
	}
	if len(out.Invoices) == 0 {
		return providers.InvoiceResult{}, fmt.Errorf("xero invoice response missing invoice")
	}

	c.log.Info("xero.invoice.create.ok",
		"req_id", rid, "invoice_id", out.Invoices[0].InvoiceID,
		"elapsed_ms", time.Since(start).Milliseconds())

	return providers.InvoiceResult{
		ExternalID:    out.Invoices[0].InvoiceID,
		InvoiceNumber: out.Invoices[0].InvoiceNumber,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
