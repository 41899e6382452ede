// Package zoho implements the Zoho Books provider.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
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

// Config carries the Zoho app credentials and endpoints.
type Config struct {
	ClientID       string
	ClientSecret   string
	OrganizationID string
	BaseURL        string
	TokenURL       string
	Timeout        time.Duration
}

// TokenStore is the persistence surface the client needs for OAuth tokens.
type TokenStore interface {
	Get(ctx context.Context, provider string) (*repository.ProviderToken, error)
	Upsert(ctx context.Context, t *repository.ProviderToken) error
}

// Client talks to the Zoho Books API for the configured organization.
type Client struct {
	cfg    Config
	tokens TokenStore
	http   *http.Client
	log    *slog.Logger
}

func NewClient(cfg Config, tokens TokenStore, logger *slog.Logger) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("ZOHO_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("ZOHO_CLIENT_SECRET")
	}
	if cfg.OrganizationID == "" {
		cfg.OrganizationID = os.Getenv("ZOHO_ORGANIZATION_ID")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.zohoapis.com"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://accounts.zoho.com/oauth/v2/token"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
}

func (c *Client) Name() string { return constants.ProviderZoho }

func (c *Client) token(ctx context.Context) (*repository.ProviderToken, error) {
	stored, err := c.tokens.Get(ctx, constants.ProviderZoho)
	if err != nil {
		return nil, fmt.Errorf("%w: zoho: %v", common.ErrReconnectRequired, err)
	}
	if stored.Valid() {
		return stored, nil
	}
	return c.refresh(ctx, stored)
}

// Zoho sends the client credentials as form parameters on the token endpoint.
func (c *Client) refresh(ctx context.Context, stored *repository.ProviderToken) (*repository.ProviderToken, error) {
	if stored.RefreshToken == "" {
		return nil, fmt.Errorf("%w: zoho: no refresh token", common.ErrReconnectRequired)
	}

	start := time.Now()
	conf := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	fresh, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken}).Token()
	if err != nil {
		c.log.Error("zoho.token.refresh_error", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: zoho: refresh failed: %v", common.ErrReconnectRequired, err)
	}

	next := &repository.ProviderToken{
		Provider:     constants.ProviderZoho,
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
	c.log.Info("zoho.token.refresh_ok",
		"expires_at", next.ExpiresAt,
		"elapsed_ms", time.Since(start).Milliseconds())
	return next, nil
}

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
			return nil, fmt.Errorf("%w: zoho: token rejected after refresh", common.ErrReconnectRequired)
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("zoho api %s %s: status %d: %s", method, path, status, truncate(raw, 512))
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any, tok *repository.ProviderToken) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal zoho request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	endpoint += sep + "organization_id=" + url.QueryEscape(c.cfg.OrganizationID)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build zoho request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+tok.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("zoho request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read zoho response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// Contact is a Zoho Books contact summary.
type Contact struct {
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
}

// Contacts lists the organization's contacts.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	raw, err := c.do(ctx, http.MethodGet, "/books/v3/contacts", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Contacts []Contact `json:"contacts"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode zoho contacts: %w", err)
	}
	return out.Contacts, nil
}

// InvoiceSummary is a Zoho Books invoice header.
type InvoiceSummary struct {
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	Date          string          `json:"date"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
}

// Invoices lists the organization's invoices.
func (c *Client) Invoices(ctx context.Context) ([]InvoiceSummary, error) {
	raw, err := c.do(ctx, http.MethodGet, "/books/v3/invoices", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Invoices []InvoiceSummary `json:"invoices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode zoho invoices: %w", err)
	}
	return out.Invoices, nil
}

// ListInvoices returns the organization's invoices in the provider-neutral
// shape. Books invoices are all sales, so totals stay positive.
func (c *Client) ListInvoices(ctx context.Context) ([]providers.Invoice, error) {
	summaries, err := c.Invoices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]providers.Invoice, 0, len(summaries))
	for _, inv := range summaries {
		var date entity.Date
		if inv.Date != "" {
			date, _ = entity.ParseDate(inv.Date)
		}
		out = append(out, providers.Invoice{
			ExternalID:    inv.InvoiceID,
			InvoiceNumber: inv.InvoiceNumber,
			ContactName:   inv.CustomerName,
			Date:          date,
			Total:         inv.Total,
			Status:        inv.Status,
		})
	}
	return out, nil
}

// CreateInvoice posts one invoice to Zoho Books. Books has no payable invoice
// type, so the line rate always carries the amount magnitude.
func (c *Client) CreateInvoice(ctx context.Context, req providers.InvoiceRequest) (providers.InvoiceResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	customer := req.ContactName
	if customer == "" {
		customer = "Unknown Customer"
	}

	payload := map[string]any{
		"customer_name": customer,
		"date":          req.Date.String(),
		"due_date":      req.Date.String(),
		"line_items": []map[string]any{{
			"name":        "Bank Transaction",
			"description": req.Description,
			"rate":        req.Amount.Abs().InexactFloat64(),
			"quantity":    1,
		}},
	}

	c.log.Info("zoho.invoice.create.start",
		"req_id", rid, "customer", customer,
		"amount", req.Amount.Abs().StringFixed(2))

	raw, err := c.do(ctx, http.MethodPost, "/books/v3/invoices", payload)
	if err != nil {
		c.log.Error("zoho.invoice.create.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return providers.InvoiceResult{}, err
	}

	var out struct {
		Invoice struct {
			InvoiceID     string `json:"invoice_id"`
			InvoiceNumber string `json:"invoice_number"`
		} `json:"invoice"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return providers.InvoiceResult{}, fmt.Errorf("decode zoho invoice response: %w", err)
	}
	if out.Invoice.InvoiceID == "" {
		return providers.InvoiceResult{}, fmt.Errorf("zoho invoice response missing invoice")
	}

	c.log.Info("zoho.invoice.create.ok",
		"req_id", rid, "invoice_id", out.Invoice.InvoiceID,
		"elapsed_ms", time.Since(start).Milliseconds())

	return providers.InvoiceResult{
		ExternalID:    out.Invoice.InvoiceID,
		InvoiceNumber: out.Invoice.InvoiceNumber,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
