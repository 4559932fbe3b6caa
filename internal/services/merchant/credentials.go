package merchant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	"github.com/kevin07696/realex-gateway/internal/adapters/realex"
	"github.com/kevin07696/realex-gateway/internal/adapters/secrets"
	"github.com/kevin07696/realex-gateway/pkg/observability"
	"go.uber.org/zap"
)

// CredentialSource names where a merchant's secrets live
type CredentialSource struct {
	MerchantID       string
	Account          string
	SecretPath       string
	RebateSecretPath string // optional
}

// Validate requires the merchant id and the shared secret path
func (s CredentialSource) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.MerchantID, validation.Required),
		validation.Field(&s.SecretPath, validation.Required),
	)
}

func (s CredentialSource) key() string {
	return s.MerchantID + "/" + s.Account
}

type cachedCredentials struct {
	creds     realex.Credentials
	expiresAt time.Time
}

// CredentialResolver turns a CredentialSource into gateway credentials, caching the result
type CredentialResolver struct {
	secrets ports.SecretManagerAdapter
	logger  *zap.Logger
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cachedCredentials
}

// NewCredentialResolver creates a resolver. A zero ttl disables caching.
func NewCredentialResolver(secretMgr ports.SecretManagerAdapter, logger *zap.Logger, ttl time.Duration) *CredentialResolver {
	return &CredentialResolver{
		secrets: secretMgr,
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedCredentials),
	}
}

// Resolve returns the credentials for src. A rebate secret path that does not exist
// yields credentials without a rebate secret; any other lookup failure is an error.
func (r *CredentialResolver) Resolve(ctx context.Context, src CredentialSource) (realex.Credentials, error) {
	if err := src.Validate(); err != nil {
		return realex.Credentials{}, fmt.Errorf("invalid credential source: %w", err)
	}

	if creds, ok := r.cached(src.key()); ok {
		r.logger.Debug("Merchant credential cache hit", zap.String("merchant_id", src.MerchantID))
		return creds, nil
	}

	shared, err := r.secrets.GetSecret(ctx, src.SecretPath)
	if err != nil {
		observability.RecordCredentialLookup("shared", lookupOutcome(err))
		return realex.Credentials{}, fmt.Errorf("failed to load shared secret for merchant %s: %w", src.MerchantID, err)
	}
	observability.RecordCredentialLookup("shared", "ok")

	creds := realex.Credentials{
		MerchantID: src.MerchantID,
		Account:    src.Account,
		Secret:     shared.Value,
	}

	if src.RebateSecretPath != "" {
		rebate, err := r.secrets.GetSecret(ctx, src.RebateSecretPath)
		switch {
		case err == nil:
			observability.RecordCredentialLookup("rebate", "ok")
			creds.RebateSecret = rebate.Value
		case errors.Is(err, secrets.ErrSecretNotFound):
			observability.RecordCredentialLookup("rebate", "not_found")
			r.logger.Warn("Rebate secret not found, credits will be sent without refundhash",
				zap.String("merchant_id", src.MerchantID),
				zap.String("path", src.RebateSecretPath),
			)
		default:
			observability.RecordCredentialLookup("rebate", "error")
			return realex.Credentials{}, fmt.Errorf("failed to load rebate secret for merchant %s: %w", src.MerchantID, err)
		}
	}

	if err := creds.Validate(); err != nil {
		return realex.Credentials{}, fmt.Errorf("invalid credentials for merchant %s: %w", src.MerchantID, err)
	}

	r.store(src.key(), creds)
	r.logger.Info("Merchant credentials loaded",
		zap.String("merchant_id", src.MerchantID),
		zap.Bool("rebate_secret", creds.RebateSecret != ""),
	)
	return creds, nil
}

// Invalidate drops any cached credentials for src, e.g. after a secret rotation
func (r *CredentialResolver) Invalidate(src CredentialSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, src.key())
}

func (r *CredentialResolver) cached(key string) (realex.Credentials, bool) {
	if r.ttl <= 0 {
		return realex.Credentials{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[key]
	if !ok {
		return realex.Credentials{}, false
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.cache, key)
		return realex.Credentials{}, false
	}
	return entry.creds, true
}

func (r *CredentialResolver) store(key string, creds realex.Credentials) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = cachedCredentials{creds: creds, expiresAt: r.now().Add(r.ttl)}
}

func lookupOutcome(err error) string {
	if errors.Is(err, secrets.ErrSecretNotFound) {
		return "not_found"
	}
	return "error"
}
