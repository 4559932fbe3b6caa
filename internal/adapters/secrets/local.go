package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	"go.uber.org/zap"
)

// ErrSecretNotFound is returned when a backend has no secret at the requested path
var ErrSecretNotFound = errors.New("secret not found")

// localSecretManager reads merchant secrets from files under a base directory.
// WARNING: This is for development only. Use AWS Secrets Manager, GCP or Vault in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a filesystem-backed secret manager rooted at basePath
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

func (m *localSecretManager) resolve(secretPath string) (string, error) {
	full := filepath.Join(m.basePath, filepath.Clean("/"+secretPath))
	if !strings.HasPrefix(full, filepath.Clean(m.basePath)) {
		return "", fmt.Errorf("secret path escapes base directory: %s", secretPath)
	}
	return full, nil
}

// GetSecret reads a secret file. JSON files of the form {"value": ..., "tags": ...}
// carry metadata; anything else is taken as the raw value with surrounding whitespace trimmed.
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Reading secret from filesystem", zap.String("path", secretPath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var stored struct {
		Value     string            `json:"value"`
		Tags      map[string]string `json:"tags"`
		CreatedAt string            `json:"created_at"`
	}
	if err := json.Unmarshal(data, &stored); err == nil && stored.Value != "" {
		return &ports.Secret{
			Value:     stored.Value,
			Version:   "v1",
			Metadata:  stored.Tags,
			CreatedAt: stored.CreatedAt,
		}, nil
	}

	return &ports.Secret{
		Value:   strings.TrimSpace(string(data)),
		Version: "v1",
	}, nil
}

// GetSecretVersion ignores the version: files only hold the latest value
func (m *localSecretManager) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	return m.GetSecret(ctx, path)
}

// PutSecret writes a secret as JSON with its tags
func (m *localSecretManager) PutSecret(ctx context.Context, secretPath, secretValue string, tags map[string]string) (string, error) {
	filePath, err := m.resolve(secretPath)
	if err != nil {
		return "", err
	}

	m.logger.Info("Storing secret to filesystem", zap.String("path", secretPath))

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(map[string]interface{}{
		"value":      secretValue,
		"tags":       tags,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal secret: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write secret: %w", err)
	}
	return "v1", nil
}
