package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., shared signing secret)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for retrieving secrets from a secret management service
// Supports multiple backends: AWS Secrets Manager, GCP Secret Manager, HashiCorp Vault, local files
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - AWS: "realex/merchants/{merchant_id}/shared-secret"
	//   - GCP: "projects/{project}/secrets/{name}/versions/latest"
	//   - Vault: "secret/data/realex/merchants/{merchant_id}"
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// GetSecretVersion retrieves a specific version of a secret
	// Useful during secret rotation to access previous version
	GetSecretVersion(ctx context.Context, path string, version string) (*Secret, error)

	// PutSecret creates or updates a secret
	// Returns the new version identifier
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)
}
