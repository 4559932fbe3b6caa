package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Secret manager backends
const (
	SecretManagerLocal = "local"
	SecretManagerAWS   = "aws"
	SecretManagerVault = "vault"
	SecretManagerGCP   = "gcp"
)

// Config holds all application configuration
type Config struct {
	Realex  RealexConfig
	Secrets SecretsConfig
	Logger  LoggerConfig
	Metrics MetricsConfig
}

// RealexConfig holds the merchant identity and gateway endpoints.
// Empty URLs mean the production defaults.
type RealexConfig struct {
	MerchantID       string
	Account          string
	SecretPath       string // path of the shared secret in the secret manager
	RebateSecretPath string // optional
	RemoteURL        string
	ThreeDSecureURL  string
	PluginsURL       string
	Currency         string
	FallbackBrands   []string
	Timeout          time.Duration
	RateLimit        float64 // requests per second, 0 = unlimited
	RateBurst        int
}

// SecretsConfig selects and configures the secret manager backend
type SecretsConfig struct {
	Backend  string
	CacheTTL time.Duration

	LocalPath string

	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	VaultAddress    string
	VaultAuthMethod string
	VaultToken      string
	VaultRoleID     string
	VaultSecretID   string
	VaultNamespace  string
	VaultMountPath  string
	VaultKVVersion  int

	GCPProjectID string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// MetricsConfig controls where the CLI writes its metrics on exit
type MetricsConfig struct {
	TextfilePath string // empty disables
}

// Load reads the given .env files (default ".env") into the environment and then calls LoadFromEnv.
// Missing files are ignored; variables already set are not overridden.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Realex: RealexConfig{
			MerchantID:       getEnv("REALEX_MERCHANT_ID", ""),
			Account:          getEnv("REALEX_ACCOUNT", ""),
			SecretPath:       getEnv("REALEX_SECRET_PATH", ""),
			RebateSecretPath: getEnv("REALEX_REBATE_SECRET_PATH", ""),
			RemoteURL:        getEnv("REALEX_REMOTE_URL", ""),
			ThreeDSecureURL:  getEnv("REALEX_3DS_URL", ""),
			PluginsURL:       getEnv("REALEX_PLUGINS_URL", ""),
			Currency:         getEnv("REALEX_CURRENCY", "EUR"),
			FallbackBrands:   getEnvAsList("REALEX_FALLBACK_BRANDS", []string{"visa", "master"}),
			Timeout:          getEnvAsDuration("REALEX_TIMEOUT", 60*time.Second),
			RateLimit:        getEnvAsFloat("REALEX_RATE_LIMIT", 0),
			RateBurst:        getEnvAsInt("REALEX_RATE_BURST", 1),
		},
		Secrets: SecretsConfig{
			Backend:  getEnv("SECRET_MANAGER", SecretManagerLocal),
			CacheTTL: getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),

			LocalPath: getEnv("LOCAL_SECRETS_PATH", "./secrets"),

			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			AWSProfile:  getEnv("AWS_PROFILE", ""),
			AWSEndpoint: getEnv("AWS_SECRETS_ENDPOINT", ""),

			VaultAddress:    getEnv("VAULT_ADDR", "http://localhost:8200"),
			VaultAuthMethod: getEnv("VAULT_AUTH_METHOD", "token"),
			VaultToken:      getEnv("VAULT_TOKEN", ""),
			VaultRoleID:     getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID:   getEnv("VAULT_SECRET_ID", ""),
			VaultNamespace:  getEnv("VAULT_NAMESPACE", ""),
			VaultMountPath:  getEnv("VAULT_MOUNT_PATH", "secret"),
			VaultKVVersion:  getEnvAsInt("VAULT_KV_VERSION", 2),

			GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Metrics: MetricsConfig{
			TextfilePath: getEnv("METRICS_TEXTFILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and backend-specific settings
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Realex,
		validation.Field(&c.Realex.MerchantID, validation.Required.Error("REALEX_MERCHANT_ID is required")),
		validation.Field(&c.Realex.SecretPath, validation.Required.Error("REALEX_SECRET_PATH is required")),
		validation.Field(&c.Realex.Currency, validation.Length(3, 3).Error("REALEX_CURRENCY must be a 3-letter code")),
		validation.Field(&c.Realex.Timeout, validation.Min(time.Second).Error("REALEX_TIMEOUT must be at least 1s")),
		validation.Field(&c.Realex.RateLimit, validation.Min(0.0).Error("REALEX_RATE_LIMIT must not be negative")),
	); err != nil {
		return fmt.Errorf("invalid realex config: %w", err)
	}

	s := &c.Secrets
	if err := validation.ValidateStruct(s,
		validation.Field(&s.Backend, validation.In(SecretManagerLocal, SecretManagerAWS, SecretManagerVault, SecretManagerGCP).
			Error("SECRET_MANAGER must be one of local, aws, vault, gcp")),
		validation.Field(&s.LocalPath, validation.When(s.Backend == SecretManagerLocal, validation.Required)),
		validation.Field(&s.AWSRegion, validation.When(s.Backend == SecretManagerAWS, validation.Required)),
		validation.Field(&s.VaultAddress, validation.When(s.Backend == SecretManagerVault, validation.Required)),
		validation.Field(&s.VaultAuthMethod, validation.When(s.Backend == SecretManagerVault, validation.In("token", "approle"))),
		validation.Field(&s.VaultToken, validation.When(s.Backend == SecretManagerVault && s.VaultAuthMethod == "token", validation.Required)),
		validation.Field(&s.VaultRoleID, validation.When(s.Backend == SecretManagerVault && s.VaultAuthMethod == "approle", validation.Required)),
		validation.Field(&s.VaultSecretID, validation.When(s.Backend == SecretManagerVault && s.VaultAuthMethod == "approle", validation.Required)),
		validation.Field(&s.VaultKVVersion, validation.When(s.Backend == SecretManagerVault, validation.In(1, 2))),
		validation.Field(&s.GCPProjectID, validation.When(s.Backend == SecretManagerGCP, validation.Required)),
	); err != nil {
		return fmt.Errorf("invalid secrets config: %w", err)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
