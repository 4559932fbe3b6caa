package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	"go.uber.org/zap"
)

// AWSSecretsManagerConfig contains configuration for the AWS Secrets Manager backend
type AWSSecretsManagerConfig struct {
	Region   string
	Profile  string        // optional shared-config profile for local development
	Endpoint string        // optional custom endpoint (LocalStack)
	CacheTTL time.Duration // zero disables caching
}

// DefaultAWSSecretsManagerConfig returns the default configuration for a region
func DefaultAWSSecretsManagerConfig(region string) *AWSSecretsManagerConfig {
	return &AWSSecretsManagerConfig{
		Region:   region,
		CacheTTL: 5 * time.Minute,
	}
}

// awsSecretsAPI is the subset of the Secrets Manager client this backend calls
type awsSecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, in *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, in *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

type awsSecretsManagerAdapter struct {
	client awsSecretsAPI
	logger *zap.Logger
	cache  *secretCache
}

// NewAWSSecretsManagerAdapter loads AWS credentials from the default chain and returns a backend
func NewAWSSecretsManagerAdapter(ctx context.Context, cfg *AWSSecretsManagerConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsConfig, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("AWS Secrets Manager adapter initialized",
		zap.String("region", cfg.Region),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	return newAWSSecretsManagerAdapter(client, cfg.CacheTTL, logger), nil
}

func newAWSSecretsManagerAdapter(client awsSecretsAPI, ttl time.Duration, logger *zap.Logger) *awsSecretsManagerAdapter {
	return &awsSecretsManagerAdapter{
		client: client,
		logger: logger,
		cache:  newSecretCache(ttl),
	}
}

// GetSecret retrieves the current version of a secret by name or ARN
func (a *awsSecretsManagerAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		a.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached, nil
	}

	secret, err := a.fetch(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)})
	if err != nil {
		return nil, err
	}

	a.cache.set(path, secret)
	return secret, nil
}

// GetSecretVersion retrieves a specific version id, bypassing the cache
func (a *awsSecretsManagerAdapter) GetSecretVersion(ctx context.Context, path string, version string) (*ports.Secret, error) {
	return a.fetch(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:  aws.String(path),
		VersionId: aws.String(version),
	})
}

func (a *awsSecretsManagerAdapter) fetch(ctx context.Context, input *secretsmanager.GetSecretValueInput) (*ports.Secret, error) {
	path := aws.ToString(input.SecretId)
	start := time.Now()

	result, err := a.client.GetSecretValue(ctx, input)
	if err != nil {
		a.logger.Error("Failed to retrieve secret", zap.String("path", path), zap.Error(err))
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	a.logger.Debug("Secret retrieved",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
	)

	secret := &ports.Secret{
		Value:    aws.ToString(result.SecretString),
		Version:  aws.ToString(result.VersionId),
		Metadata: map[string]string{},
	}
	if result.CreatedDate != nil {
		secret.CreatedAt = result.CreatedDate.Format(time.RFC3339)
	}
	if result.ARN != nil {
		secret.Metadata["arn"] = *result.ARN
	}
	if result.Name != nil {
		secret.Metadata["name"] = *result.Name
	}
	return secret, nil
}

// PutSecret updates a secret, creating it first if it does not exist
func (a *awsSecretsManagerAdapter) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	defer a.cache.invalidate(path)

	result, err := a.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(path),
		SecretString: aws.String(value),
	})
	if err == nil {
		a.logger.Info("Secret updated", zap.String("path", path), zap.String("version", aws.ToString(result.VersionId)))
		return aws.ToString(result.VersionId), nil
	}

	var notFound *smtypes.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("failed to put secret %s: %w", path, err)
	}

	createInput := &secretsmanager.CreateSecretInput{
		Name:         aws.String(path),
		SecretString: aws.String(value),
		Description:  aws.String("Realex merchant signing secret"),
	}
	for key, val := range metadata {
		createInput.Tags = append(createInput.Tags, smtypes.Tag{Key: aws.String(key), Value: aws.String(val)})
	}

	created, err := a.client.CreateSecret(ctx, createInput)
	if err != nil {
		return "", fmt.Errorf("failed to create secret %s: %w", path, err)
	}

	a.logger.Info("Secret created", zap.String("path", path), zap.String("version", aws.ToString(created.VersionId)))
	return aws.ToString(created.VersionId), nil
}
