package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconcileai/reconcileai/constants"
	"github.com/reconcileai/reconcileai/internal/common"
	"github.com/reconcileai/reconcileai/internal/entity"
	"github.com/reconcileai/reconcileai/internal/providers"
	"github.com/reconcileai/reconcileai/internal/repository"
)

type memTokens struct {
	tok *repository.ProviderToken
}

func (m *memTokens) Get(_ context.Context, provider string) (*repository.ProviderToken, error) {
	if m.tok == nil {
		return nil, fmt.Errorf("%w: token for %s", common.ErrNotFound, provider)
	}
	return m.tok, nil
}

func (m *memTokens) Upsert(_ context.Context, t *repository.ProviderToken) error {
	m.tok = t
	return nil
}

func validTokens() *memTokens {
	return &memTokens{tok: &repository.ProviderToken{
		Provider:     constants.ProviderXero,
		AccessToken:  "live-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		TenantID:     "tenant-1",
	}}
}

func TestCreateInvoice_CreditBecomesReceivable(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer live-token", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant-1", r.Header.Get("Xero-tenant-id"))
		assert.Equal(t, "/api.xro/2.0/Invoices", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"Invoices":[{"InvoiceID":"inv-123","InvoiceNumber":"INV-0042"}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, validTokens(), nil)

	res, err := c.CreateInvoice(context.Background(), providers.InvoiceRequest{
		Date:        entity.NewDate(2024, time.March, 5),
		Description: "Card settlement",
		Amount:      decimal.RequireFromString("150.25"),
		ContactName: "Acme Ltd",
	})
	require.NoError(t, err)
	assert.Equal(t, "inv-123", res.ExternalID)
	assert.Equal(t, "INV-0042", res.InvoiceNumber)

	invoices := got["Invoices"].([]any)
	require.Len(t, invoices, 1)
	inv := invoices[0].(map[string]any)
	assert.Equal(t, "ACCREC", inv["Type"])
	assert.Equal(t, "AUTHORISED", inv["Status"])
	assert.Equal(t, "2024-03-05", inv["Date"])
	assert.Equal(t, map[string]any{"Name": "Acme Ltd"}, inv["Contact"])

	line := inv["LineItems"].([]any)[0].(map[string]any)
	assert.Equal(t, "200", line["AccountCode"])
	assert.Equal(t, 150.25, line["UnitAmount"])
}

func TestCreateInvoice_DebitBecomesPayable(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"Invoices":[{"InvoiceID":"inv-9"}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, validTokens(), nil)

	_, err := c.CreateInvoice(context.Background(), providers.InvoiceRequest{
		Date:        entity.NewDate(2024, time.March, 6),
		Description: "Supplier payment",
		Amount:      decimal.RequireFromString("-42.00"),
	})
	require.NoError(t, err)

	inv := got["Invoices"].([]any)[0].(map[string]any)
	assert.Equal(t, "ACCPAY", inv["Type"])
	assert.Equal(t, map[string]any{"Name": "Unknown Contact"}, inv["Contact"])

	line := inv["LineItems"].([]any)[0].(map[string]any)
	assert.Equal(t, "400", line["AccountCode"])
	assert.Equal(t, 42.0, line["UnitAmount"])
}

func TestDo_RefreshesAndRetriesOn401(t *testing.T) {
	var apiCalls, refreshes int
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-token","refresh_token":"next-refresh","expires_in":1800,"token_type":"Bearer"}`)
	})
	mux.HandleFunc("/api.xro/2.0/Contacts", func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"Contacts":[{"ContactID":"c-1","Name":"Acme Ltd"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := validTokens()
	c := NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/connect/token",
	}, store, nil)

	contacts, err := c.Contacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Acme Ltd", contacts[0].Name)

	assert.Equal(t, 2, apiCalls)
	assert.Equal(t, 1, refreshes)
	assert.Equal(t, "fresh-token", store.tok.AccessToken)
	assert.Equal(t, "next-refresh", store.tok.RefreshToken)
	assert.Equal(t, "tenant-1", store.tok.TenantID)
}

func TestDo_SecondUnauthorizedMeansReconnect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"still-bad","expires_in":1800,"token_type":"Bearer"}`)
	})
	mux.HandleFunc("/api.xro/2.0/Invoices", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/connect/token",
	}, validTokens(), nil)

	_, err := c.Invoices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReconnectRequired)
}

func TestListInvoices_SignsPayablesNegative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api.xro/2.0/Invoices", r.URL.Path)
		fmt.Fprint(w, `{"Invoices":[
			{"InvoiceID":"inv-1","InvoiceNumber":"INV-0001","Type":"ACCREC","Status":"AUTHORISED","Total":150.25,"Contact":{"Name":"Acme Ltd"},"DateString":"2024-03-05T00:00:00"},
			{"InvoiceID":"inv-2","InvoiceNumber":"INV-0002","Type":"ACCPAY","Status":"AUTHORISED","Total":42.10,"DateString":"2024-03-06T00:00:00"}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, validTokens(), nil)

	invs, err := c.ListInvoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invs, 2)

	assert.Equal(t, "inv-1", invs[0].ExternalID)
	assert.Equal(t, "Acme Ltd", invs[0].ContactName)
	assert.Equal(t, "2024-03-05", invs[0].Date.String())
	assert.True(t, invs[0].Total.Equal(decimal.RequireFromString("150.25")))

	assert.True(t, invs[1].Total.Equal(decimal.RequireFromString("-42.10")))
	assert.Equal(t, "2024-03-06", invs[1].Date.String())
}

func TestToken_MissingMeansReconnect(t *testing.T) {
	c := NewClient(Config{ClientID: "id", ClientSecret: "secret"}, &memTokens{}, nil)

	_, err := c.Contacts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReconnectRequired)
}
