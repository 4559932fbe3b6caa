package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for the HashiCorp Vault backend
type VaultConfig struct {
	Address    string
	AuthMethod string // "token" or "approle"
	Token      string
	RoleID     string
	SecretID   string
	Namespace  string // Vault Enterprise
	MountPath  string // KV mount, default "secret"
	KVVersion  string // "v1" or "v2", default "v2"
	CacheTTL   time.Duration
}

// DefaultVaultConfig returns token auth against a KV v2 mount at "secret"
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:    address,
		AuthMethod: "token",
		MountPath:  "secret",
		KVVersion:  "v2",
		CacheTTL:   5 * time.Minute,
	}
}

// vaultLogical is the subset of *vault.Logical this backend calls
type vaultLogical interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
	ReadWithDataWithContext(ctx context.Context, path string, data map[string][]string) (*vault.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error)
}

type vaultAdapter struct {
	logical vaultLogical
	config  *VaultConfig
	logger  *zap.Logger
	cache   *secretCache
}

// NewVaultAdapter creates an authenticated Vault backend
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return newVaultAdapter(client.Logical(), cfg, logger), nil
}

func newVaultAdapter(logical vaultLogical, cfg *VaultConfig, logger *zap.Logger) *vaultAdapter {
	return &vaultAdapter{
		logical: logical,
		config:  cfg,
		logger:  logger,
		cache:   newSecretCache(cfg.CacheTTL),
	}
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

func (a *vaultAdapter) dataPath(path string) string {
	if a.config.KVVersion == "v2" {
		return fmt.Sprintf("%s/data/%s", a.config.MountPath, path)
	}
	return fmt.Sprintf("%s/%s", a.config.MountPath, path)
}

// GetSecret reads the "value" key of a KV entry
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		a.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	raw, err := a.logical.ReadWithContext(ctx, a.dataPath(path))
	if err != nil {
		a.logger.Error("Failed to retrieve secret from Vault", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}

	secret, err := a.decode(path, raw)
	if err != nil {
		return nil, err
	}

	a.cache.set(path, secret)
	return secret, nil
}

// GetSecretVersion reads a specific KV v2 version
func (a *vaultAdapter) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	if a.config.KVVersion != "v2" {
		return nil, fmt.Errorf("GetSecretVersion requires KV v2")
	}

	raw, err := a.logical.ReadWithDataWithContext(ctx, a.dataPath(path), map[string][]string{
		"version": {version},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read secret version: %w", err)
	}
	return a.decode(path, raw)
}

func (a *vaultAdapter) decode(path string, raw *vault.Secret) (*ports.Secret, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}

	data := raw.Data
	version := "1"
	var createdAt string

	if a.config.KVVersion == "v2" {
		inner, ok := raw.Data["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid secret format from Vault at %s", path)
		}
		data = inner

		if meta, ok := raw.Data["metadata"].(map[string]interface{}); ok {
			if v, ok := meta["version"].(json.Number); ok {
				version = v.String()
			}
			if ct, ok := meta["created_time"].(string); ok {
				createdAt = ct
			}
		}
	}

	value, _ := data["value"].(string)
	if value == "" {
		return nil, fmt.Errorf("secret %s has no value", path)
	}

	secret := &ports.Secret{
		Value:     value,
		Version:   version,
		CreatedAt: createdAt,
		Metadata:  map[string]string{},
	}
	for k, v := range data {
		if str, ok := v.(string); ok && k != "value" {
			secret.Metadata[k] = str
		}
	}
	return secret, nil
}

// PutSecret writes value plus metadata fields to the KV entry
func (a *vaultAdapter) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	defer a.cache.invalidate(path)

	fields := map[string]interface{}{"value": value}
	for k, v := range metadata {
		fields[k] = v
	}

	payload := fields
	if a.config.KVVersion == "v2" {
		payload = map[string]interface{}{"data": fields}
	}

	resp, err := a.logical.WriteWithContext(ctx, a.dataPath(path), payload)
	if err != nil {
		a.logger.Error("Failed to write secret to Vault", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to write secret: %w", err)
	}

	version := "1"
	if resp != nil && resp.Data != nil {
		if v, ok := resp.Data["version"].(json.Number); ok {
			version = v.String()
		}
	}

	a.logger.Info("Secret written to Vault", zap.String("path", path), zap.String("version", version))
	return version, nil
}
