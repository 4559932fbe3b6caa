package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	"github.com/kevin07696/realex-gateway/internal/adapters/secrets"
	"github.com/kevin07696/realex-gateway/internal/config"
	"go.uber.org/zap"
)

// initSecretManager builds the backend selected by SECRET_MANAGER.
// The returned close func is never nil.
func initSecretManager(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretManagerAdapter, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.SecretManagerAWS:
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		awsCfg.Endpoint = cfg.AWSEndpoint
		awsCfg.CacheTTL = cfg.CacheTTL

		sm, err := secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize AWS Secrets Manager: %w", err)
		}
		return sm, noop, nil

	case config.SecretManagerVault:
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.AuthMethod = cfg.VaultAuthMethod
		vaultCfg.Token = cfg.VaultToken
		vaultCfg.RoleID = cfg.VaultRoleID
		vaultCfg.SecretID = cfg.VaultSecretID
		vaultCfg.Namespace = cfg.VaultNamespace
		vaultCfg.MountPath = cfg.VaultMountPath
		vaultCfg.KVVersion = "v" + strconv.Itoa(cfg.VaultKVVersion)
		vaultCfg.CacheTTL = cfg.CacheTTL

		sm, err := secrets.NewVaultAdapter(ctx, vaultCfg, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize Vault: %w", err)
		}
		return sm, noop, nil

	case config.SecretManagerGCP:
		gcpCfg := secrets.DefaultGCPSecretManagerConfig(cfg.GCPProjectID)
		gcpCfg.CacheTTL = cfg.CacheTTL

		sm, err := secrets.NewGCPSecretManager(ctx, gcpCfg, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to initialize GCP Secret Manager: %w", err)
		}
		return sm, sm.Close, nil

	case config.SecretManagerLocal:
		logger.Warn("Using local file secret manager - NOT for production use!",
			zap.String("path", cfg.LocalPath),
		)
		return secrets.NewLocalSecretManager(cfg.LocalPath, logger), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown SECRET_MANAGER %q", cfg.Backend)
}
