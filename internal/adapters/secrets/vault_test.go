package secrets

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVaultLogical struct {
	secrets    map[string]*vault.Secret
	lastWrite  map[string]interface{}
	readParams map[string][]string
}

func (f *fakeVaultLogical) ReadWithContext(ctx context.Context, path string) (*vault.Secret, error) {
	return f.secrets[path], nil
}

func (f *fakeVaultLogical) ReadWithDataWithContext(ctx context.Context, path string, data map[string][]string) (*vault.Secret, error) {
	f.readParams = data
	return f.secrets[path], nil
}

func (f *fakeVaultLogical) WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*vault.Secret, error) {
	f.lastWrite = data
	return &vault.Secret{Data: map[string]interface{}{"version": json.Number("3")}}, nil
}

func TestVaultAdapter_GetSecretKVv2(t *testing.T) {
	fake := &fakeVaultLogical{secrets: map[string]*vault.Secret{
		"secret/data/realex/acme": {Data: map[string]interface{}{
			"data": map[string]interface{}{"value": "your_secret", "merchant": "acme"},
			"metadata": map[string]interface{}{
				"version":      json.Number("2"),
				"created_time": "2024-01-01T00:00:00Z",
			},
		}},
	}}
	sm := newVaultAdapter(fake, DefaultVaultConfig("http://vault:8200"), zap.NewNop())

	secret, err := sm.GetSecret(context.Background(), "realex/acme")
	require.NoError(t, err)
	assert.Equal(t, "your_secret", secret.Value)
	assert.Equal(t, "2", secret.Version)
	assert.Equal(t, "2024-01-01T00:00:00Z", secret.CreatedAt)
	assert.Equal(t, "acme", secret.Metadata["merchant"])
}

func TestVaultAdapter_GetSecretKVv1(t *testing.T) {
	cfg := DefaultVaultConfig("http://vault:8200")
	cfg.KVVersion = "v1"
	cfg.MountPath = "kv"
	fake := &fakeVaultLogical{secrets: map[string]*vault.Secret{
		"kv/realex/acme": {Data: map[string]interface{}{"value": "your_secret"}},
	}}
	sm := newVaultAdapter(fake, cfg, zap.NewNop())

	secret, err := sm.GetSecret(context.Background(), "realex/acme")
	require.NoError(t, err)
	assert.Equal(t, "your_secret", secret.Value)
	assert.Equal(t, "1", secret.Version)

	_, err = sm.GetSecretVersion(context.Background(), "realex/acme", "1")
	assert.Error(t, err)
}

func TestVaultAdapter_Errors(t *testing.T) {
	fake := &fakeVaultLogical{secrets: map[string]*vault.Secret{
		"secret/data/empty": {Data: map[string]interface{}{"data": map[string]interface{}{}}},
	}}
	sm := newVaultAdapter(fake, DefaultVaultConfig("http://vault:8200"), zap.NewNop())

	_, err := sm.GetSecret(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = sm.GetSecret(context.Background(), "empty")
	assert.Error(t, err)
}

func TestVaultAdapter_GetSecretVersion(t *testing.T) {
	fake := &fakeVaultLogical{secrets: map[string]*vault.Secret{
		"secret/data/realex/acme": {Data: map[string]interface{}{
			"data": map[string]interface{}{"value": "old_secret"},
		}},
	}}
	sm := newVaultAdapter(fake, DefaultVaultConfig("http://vault:8200"), zap.NewNop())

	secret, err := sm.GetSecretVersion(context.Background(), "realex/acme", "1")
	require.NoError(t, err)
	assert.Equal(t, "old_secret", secret.Value)
	assert.Equal(t, []string{"1"}, fake.readParams["version"])
}

func TestVaultAdapter_PutSecret(t *testing.T) {
	cfg := DefaultVaultConfig("http://vault:8200")
	cfg.CacheTTL = time.Minute
	fake := &fakeVaultLogical{secrets: map[string]*vault.Secret{}}
	sm := newVaultAdapter(fake, cfg, zap.NewNop())

	version, err := sm.PutSecret(context.Background(), "realex/acme", "s3cret", map[string]string{"merchant": "acme"})
	require.NoError(t, err)
	assert.Equal(t, "3", version)

	data, ok := fake.lastWrite["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "s3cret", data["value"])
	assert.Equal(t, "acme", data["merchant"])
}
