package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPSecretManagerConfig contains configuration for Google Cloud Secret Manager
type GCPSecretManagerConfig struct {
	ProjectID string
	CacheTTL  time.Duration
}

// DefaultGCPSecretManagerConfig returns the default configuration for a project
func DefaultGCPSecretManagerConfig(projectID string) *GCPSecretManagerConfig {
	return &GCPSecretManagerConfig{
		ProjectID: projectID,
		CacheTTL:  5 * time.Minute,
	}
}

// gcpSecretsAPI is the subset of the Secret Manager client this backend calls
type gcpSecretsAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
}

// GCPSecretManager implements ports.SecretManagerAdapter for Google Cloud Secret Manager
type GCPSecretManager struct {
	client    gcpSecretsAPI
	closer    func() error
	projectID string
	logger    *zap.Logger
	cache     *secretCache
}

// NewGCPSecretManager creates a backend using application default credentials
func NewGCPSecretManager(ctx context.Context, cfg *GCPSecretManagerConfig, logger *zap.Logger) (*GCPSecretManager, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager initialized",
		zap.String("project_id", cfg.ProjectID),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	sm := newGCPSecretManager(client, cfg, logger)
	sm.closer = client.Close
	return sm, nil
}

func newGCPSecretManager(client gcpSecretsAPI, cfg *GCPSecretManagerConfig, logger *zap.Logger) *GCPSecretManager {
	return &GCPSecretManager{
		client:    client,
		closer:    func() error { return nil },
		projectID: cfg.ProjectID,
		logger:    logger,
		cache:     newSecretCache(cfg.CacheTTL),
	}
}

// Close closes the underlying client
func (sm *GCPSecretManager) Close() error {
	return sm.closer()
}

// secretID maps a slash-separated path onto a valid GCP secret id
func secretID(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
}

func (sm *GCPSecretManager) secretName(path string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID(path))
}

// GetSecret reads the latest version
func (sm *GCPSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := sm.cache.get(path); cached != nil {
		sm.logger.Debug("Secret cache hit", zap.String("path", path))
		return cached, nil
	}

	secret, err := sm.GetSecretVersion(ctx, path, "latest")
	if err != nil {
		return nil, err
	}

	sm.cache.set(path, secret)
	return secret, nil
}

// GetSecretVersion reads a numbered version or "latest"
func (sm *GCPSecretManager) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	name := fmt.Sprintf("%s/versions/%s", sm.secretName(path), version)

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		sm.logger.Error("Failed to access GCP secret", zap.String("secret_name", name), zap.Error(err))
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		return nil, fmt.Errorf("failed to access GCP secret %s: %w", path, err)
	}

	return &ports.Secret{
		Value:   string(result.GetPayload().GetData()),
		Version: extractVersionFromName(result.GetName()),
		Metadata: map[string]string{
			"gcp_project_id": sm.projectID,
			"gcp_secret":     secretID(path),
		},
	}, nil
}

// PutSecret adds a version, creating the secret with automatic replication if needed
func (sm *GCPSecretManager) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	defer sm.cache.invalidate(path)

	addReq := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  sm.secretName(path),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}

	result, err := sm.client.AddSecretVersion(ctx, addReq)
	if status.Code(err) == codes.NotFound {
		_, err = sm.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   fmt.Sprintf("projects/%s", sm.projectID),
			SecretId: secretID(path),
			Secret: &secretmanagerpb.Secret{
				Labels: metadata,
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
		if err != nil {
			return "", fmt.Errorf("failed to create GCP secret %s: %w", path, err)
		}
		result, err = sm.client.AddSecretVersion(ctx, addReq)
	}
	if err != nil {
		return "", fmt.Errorf("failed to add GCP secret version %s: %w", path, err)
	}

	version := extractVersionFromName(result.GetName())
	sm.logger.Info("Secret version added in GCP", zap.String("path", path), zap.String("version", version))
	return version, nil
}

// extractVersionFromName returns the last segment of projects/{p}/secrets/{s}/versions/{v}
func extractVersionFromName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return "unknown"
}
