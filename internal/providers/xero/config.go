package xero

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/reconcileai/reconcileai/internal/repository"
)

// Config carries the Xero app credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
}

// TokenStore is the persistence surface the client needs for OAuth tokens.
// *repository.TokenRepository satisfies it.
type TokenStore interface {
	Get(ctx context.Context, provider string) (*repository.ProviderToken, error)
	Upsert(ctx context.Context, t *repository.ProviderToken) error
}

// Client talks to the Xero accounting API on behalf of the connected tenant.
type Client struct {
	cfg    Config
	tokens TokenStore
	http   *http.Client
	log    *slog.Logger
}

func NewClient(cfg Config, tokens TokenStore, logger *slog.Logger) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = os.Getenv("XERO_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = os.Getenv("XERO_CLIENT_SECRET")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.xero.com"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://identity.xero.com/connect/token"
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

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}
