package realex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	pkghttp "github.com/kevin07696/realex-gateway/pkg/http"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// StatusError reports a non-200 reply from the gateway host
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.StatusCode, e.Endpoint)
}

// HTTPTransportConfig configures the HTTPS transport
type HTTPTransportConfig struct {
	Timeout        time.Duration
	RateLimit      float64 // requests per second; zero disables limiting
	Burst          int
	CircuitBreaker CircuitBreakerConfig
}

// DefaultHTTPTransportConfig returns a 60s timeout, no rate limit and the default breaker
func DefaultHTTPTransportConfig() HTTPTransportConfig {
	return HTTPTransportConfig{
		Timeout:        60 * time.Second,
		Burst:          1,
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// httpTransport posts request documents over HTTPS. It never retries.
type httpTransport struct {
	client  ports.HTTPClient
	logger  *zap.Logger
	breaker *CircuitBreaker
	limiter *rate.Limiter
}

// NewHTTPTransport creates the production transport
func NewHTTPTransport(cfg HTTPTransportConfig, logger *zap.Logger) ports.Transport {
	client := pkghttp.NewHTTPClient(pkghttp.RealexClientConfig(), cfg.Timeout)
	return newHTTPTransport(client, cfg, logger)
}

func newHTTPTransport(client ports.HTTPClient, cfg HTTPTransportConfig, logger *zap.Logger) *httpTransport {
	t := &httpTransport{
		client:  client,
		logger:  logger,
		breaker: NewCircuitBreaker(cfg.CircuitBreaker),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t
}

// Post sends body to endpoint and returns the reply body
func (t *httpTransport) Post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var reply []byte
	err := t.breaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
		}

		reply = data
		return nil
	})

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		t.logger.Warn("Circuit breaker rejecting Realex request",
			zap.String("endpoint", endpoint),
			zap.String("circuit_state", t.breaker.State().String()),
		)
	}
	if err != nil {
		return nil, err
	}
	return reply, nil
}
