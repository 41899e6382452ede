package common

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	OCR      OCRConfig
	Policy   PolicyConfig
	Storage  StorageConfig
	Xero     ProviderConfig
	Zoho     ProviderConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	IsProduction    bool
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// LLMConfig holds AI provider configuration.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OCRConfig holds document-analysis provider configuration.
type OCRConfig struct {
	AWSRegion string
	Timeout   time.Duration
}

// PolicyConfig exposes the reconciliation thresholds as configuration.
// Defaults mirror the values the product has shipped with; see recon.Policy.
type PolicyConfig struct {
	AcceptEligible     float64
	AlreadySynced      float64
	StructuredRowFloor int
	NegligibleAmount   string
	FallbackConfidence float64
	MaxPromptBytes     int
}

// NegligibleDecimal parses the configured negligible amount, falling back to
// the shipped default when the value is not a valid decimal.
func (p PolicyConfig) NegligibleDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(p.NegligibleAmount)
	if err != nil {
		return decimal.RequireFromString("0.01")
	}
	return d
}

// StorageConfig holds uploaded-file storage configuration.
type StorageConfig struct {
	UploadDir string
}

// ProviderConfig holds accounting-provider OAuth client configuration.
type ProviderConfig struct {
	ClientID       string
	ClientSecret   string
	TenantID       string
	OrganizationID string
}

// LoadConfig loads configuration from environment variables, with a .env file
// honored when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	viper.SetDefault("DB_URL", "")
	viper.SetDefault("DB_MAX_CONNS", 20)
	viper.SetDefault("DB_MIN_CONNS", 2)
	viper.SetDefault("DB_MAX_CONN_LIFETIME", "30m")
	viper.SetDefault("DB_MAX_CONN_IDLE_TIME", "5m")
	viper.SetDefault("DB_DIAL_TIMEOUT", "3s")

	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("OPENAI_API_KEY", "")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("OPENAI_TEMPERATURE", 0.1)
	viper.SetDefault("OPENAI_MAX_TOKENS", 3000)
	viper.SetDefault("OPENAI_TIMEOUT", "45s")

	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("OCR_TIMEOUT", "60s")

	viper.SetDefault("POLICY_ACCEPT_ELIGIBLE", 0.7)
	viper.SetDefault("POLICY_ALREADY_SYNCED", 0.9)
	viper.SetDefault("POLICY_STRUCTURED_ROW_FLOOR", 3)
	viper.SetDefault("POLICY_NEGLIGIBLE_AMOUNT", "0.01")
	viper.SetDefault("POLICY_FALLBACK_CONFIDENCE", 0.3)
	viper.SetDefault("POLICY_MAX_PROMPT_BYTES", 48<<10)

	viper.SetDefault("UPLOAD_DIR", "./uploads")

	viper.SetDefault("XERO_CLIENT_ID", "")
	viper.SetDefault("XERO_CLIENT_SECRET", "")
	viper.SetDefault("XERO_TENANT_ID", "")
	viper.SetDefault("ZOHO_CLIENT_ID", "")
	viper.SetDefault("ZOHO_CLIENT_SECRET", "")
	viper.SetDefault("ZOHO_ORGANIZATION_ID", "")

	viper.AutomaticEnv()

	return &Config{
		Database: DatabaseConfig{
			DSN:             viper.GetString("DB_URL"),
			MaxConns:        viper.GetInt32("DB_MAX_CONNS"),
			MinConns:        viper.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime: viper.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime: viper.GetDuration("DB_MAX_CONN_IDLE_TIME"),
			DialTimeout:     viper.GetDuration("DB_DIAL_TIMEOUT"),
		},
		Server: ServerConfig{
			Addr:            viper.GetString("LISTEN_ADDR"),
			IsProduction:    viper.GetBool("IS_PRODUCTION"),
			AllowedOrigins:  viper.GetStringSlice("ALLOWED_ORIGINS"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		LLM: LLMConfig{
			BaseURL:     viper.GetString("OPENAI_BASE_URL"),
			APIKey:      viper.GetString("OPENAI_API_KEY"),
			Model:       viper.GetString("OPENAI_MODEL"),
			Temperature: float32(viper.GetFloat64("OPENAI_TEMPERATURE")),
			MaxTokens:   viper.GetInt("OPENAI_MAX_TOKENS"),
			Timeout:     viper.GetDuration("OPENAI_TIMEOUT"),
		},
		OCR: OCRConfig{
			AWSRegion: viper.GetString("AWS_REGION"),
			Timeout:   viper.GetDuration("OCR_TIMEOUT"),
		},
		Policy: PolicyConfig{
			AcceptEligible:     viper.GetFloat64("POLICY_ACCEPT_ELIGIBLE"),
			AlreadySynced:      viper.GetFloat64("POLICY_ALREADY_SYNCED"),
			StructuredRowFloor: viper.GetInt("POLICY_STRUCTURED_ROW_FLOOR"),
			NegligibleAmount:   viper.GetString("POLICY_NEGLIGIBLE_AMOUNT"),
			FallbackConfidence: viper.GetFloat64("POLICY_FALLBACK_CONFIDENCE"),
			MaxPromptBytes:     viper.GetInt("POLICY_MAX_PROMPT_BYTES"),
		},
		Storage: StorageConfig{
			UploadDir: viper.GetString("UPLOAD_DIR"),
		},
		Xero: ProviderConfig{
			ClientID:     viper.GetString("XERO_CLIENT_ID"),
			ClientSecret: viper.GetString("XERO_CLIENT_SECRET"),
			TenantID:     viper.GetString("XERO_TENANT_ID"),
		},
		Zoho: ProviderConfig{
			ClientID:       viper.GetString("ZOHO_CLIENT_ID"),
			ClientSecret:   viper.GetString("ZOHO_CLIENT_SECRET"),
			OrganizationID: viper.GetString("ZOHO_ORGANIZATION_ID"),
		},
	}
}

// Validate checks the loaded configuration for required values.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "LISTEN_ADDR is required", ErrInvalidInput)
	}
	return nil
}
