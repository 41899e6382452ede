package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconcileai/reconcileai/internal/common"
)

// ProviderToken is a stored OAuth token for an accounting provider.
type ProviderToken struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	TenantID     string
	UpdatedAt    time.Time
}

// Valid reports whether the access token is still usable.
func (t *ProviderToken) Valid() bool {
	return t.AccessToken != "" && time.Now().Before(t.ExpiresAt)
}

// TokenRepository stores one current token per provider.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Get(ctx context.Context, provider string) (*ProviderToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT provider, access_token, refresh_token, expires_at,
		       COALESCE(tenant_id, ''), updated_at
		FROM provider_tokens WHERE provider = $1`, provider)

	var t ProviderToken
	err := row.Scan(&t.Provider, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.TenantID, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: token for %s", common.ErrNotFound, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get token: %v", common.ErrDatabase, err)
	}
	return &t, nil
}

func (r *TokenRepository) Upsert(ctx context.Context, t *ProviderToken) error {
	t.UpdatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider_tokens (provider, access_token, refresh_token, expires_at, tenant_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			tenant_id = EXCLUDED.tenant_id,
			updated_at = EXCLUDED.updated_at`,
		t.Provider, t.AccessToken, t.RefreshToken, t.ExpiresAt, nullable(t.TenantID), t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert token: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, provider string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM provider_tokens WHERE provider = $1`, provider)
	if err != nil {
		return fmt.Errorf("%w: delete token: %v", common.ErrDatabase, err)
	}
	return nil
}
