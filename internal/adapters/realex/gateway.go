package realex

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/realex-gateway/internal/adapters/ports"
	"github.com/kevin07696/realex-gateway/internal/domain/models"
	pkgerrors "github.com/kevin07696/realex-gateway/pkg/errors"
	"github.com/kevin07696/realex-gateway/pkg/observability"
	"github.com/kevin07696/realex-gateway/pkg/timeutil"
	"go.uber.org/zap"
)

// Config contains the gateway endpoints and policy
type Config struct {
	// Endpoint for auth, settle, rebate and void
	RemoteURL string

	// Endpoint for 3ds-verifyenrolled and 3ds-verifysig
	ThreeDSecureURL string

	// Endpoint for card-new, card-cancel-card, receipt-in and payer-new
	PluginsURL string

	// Currency used when Options.Currency is empty
	Currency string

	// Brands that fall back to a plain purchase when not enrolled in 3-D Secure
	FallbackBrands []models.CardBrand
}

// DefaultConfig returns the production endpoints with EUR and the Visa/Mastercard fallback policy
func DefaultConfig() Config {
	return Config{
		RemoteURL:       "https://epage.payandshop.com/epage-remote.cgi",
		ThreeDSecureURL: "https://epage.payandshop.com/epage-3dsecure.cgi",
		PluginsURL:      "https://epage.payandshop.com/epage-remote-plugins.cgi",
		Currency:        DefaultCurrency,
		FallbackBrands:  []models.CardBrand{models.BrandVisa, models.BrandMaster},
	}
}

// Gateway is the caller-facing Realex client. It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	config         Config
	builder        *RequestBuilder
	transport      ports.Transport
	logger         *zap.Logger
	fallbackBrands map[models.CardBrand]bool
}

// GatewayOption customizes a Gateway at construction
type GatewayOption func(*gatewayOptions)

type gatewayOptions struct {
	clock timeutil.Clock
}

// WithClock pins the clock used for request timestamps
func WithClock(clock timeutil.Clock) GatewayOption {
	return func(o *gatewayOptions) { o.clock = clock }
}

// NewGateway creates a gateway for one merchant
func NewGateway(cfg Config, creds Credentials, transport ports.Transport, logger *zap.Logger, opts ...GatewayOption) (*Gateway, error) {
	if err := asValidationError("credentials", creds.Validate()); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := gatewayOptions{clock: timeutil.Now}
	for _, opt := range opts {
		opt(&o)
	}

	fallback := make(map[models.CardBrand]bool, len(cfg.FallbackBrands))
	for _, b := range cfg.FallbackBrands {
		fallback[b] = true
	}

	return &Gateway{
		config:         cfg,
		builder:        NewRequestBuilder(creds, cfg.Currency, o.clock),
		transport:      transport,
		logger:         logger,
		fallbackBrands: fallback,
	}, nil
}

// Authorize reserves amount on the card without settling. 3-D Secure options select the flow.
func (g *Gateway) Authorize(ctx context.Context, amount int64, card models.CreditCard, opts Options) (*Response, error) {
	return g.authorizeOrPurchase(ctx, amount, card, opts, false)
}

// Purchase authorizes and settles amount in one request. 3-D Secure options select the flow.
func (g *Gateway) Purchase(ctx context.Context, amount int64, card models.CreditCard, opts Options) (*Response, error) {
	return g.authorizeOrPurchase(ctx, amount, card, opts, true)
}

func (g *Gateway) authorizeOrPurchase(ctx context.Context, amount int64, card models.CreditCard, opts Options, settle bool) (*Response, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newThreeDSecureFlow(g, amount, card, opts, settle).run(ctx)
}

// Capture settles a prior authorization. authorization is the auth code; opts carries the pasref.
func (g *Gateway) Capture(ctx context.Context, authorization string, opts Options) (*Response, error) {
	return g.buildAndCommit(ctx, func() (*Request, error) {
		return g.builder.BuildCapture(authorization, opts)
	})
}

// Void cancels a prior transaction before settlement
func (g *Gateway) Void(ctx context.Context, authorization string, opts Options) (*Response, error) {
	return g.buildAndCommit(ctx, func() (*Request, error) {
		return g.builder.BuildVoid(authorization, opts)
	})
}

// Credit refunds amount against a settled transaction
func (g *Gateway) Credit(ctx context.Context, amount int64, authorization string, opts Options) (*Response, error) {
	return g.buildAndCommit(ctx, func() (*Request, error) {
		return g.builder.BuildCredit(amount, authorization, opts)
	})
}

// Store registers card under opts.PaymentMethod for opts.Payer
func (g *Gateway) Store(ctx context.Context, card models.CreditCard, opts Options) (*Response, error) {
	return g.buildAndCommit(ctx, func() (*Request, error) {
		return g.builder.BuildStoreCard(card, opts)
	})
}

// Unstore removes the stored card opts.PaymentMethod from opts.Payer
func (g *Gateway) Unstore(ctx context.Context, card models.CreditCard, opts Options) (*Response, error) {
	return g.buildAndCommit(ctx, func() (*Request, error) {
		return g.builder.BuildUnstoreCard(card, opts)
	})
}

// StorePayer creates the payer record opts.Payer
func (g *Gateway) StorePayer(ctx context.Context, opts Options) (*Response, error) {
	return g.buildAndCommit(ctx, func() (*Request, error) {
		return g.builder.BuildPayerNew(opts)
	})
}

// RecurringPurchase charges amount to a stored card
func (g *Gateway) RecurringPurchase(ctx context.Context, amount int64, opts Options) (*Response, error) {
	return g.buildAndCommit(ctx, func() (*Request, error) {
		return g.builder.BuildReceiptIn(amount, opts)
	})
}

func (g *Gateway) buildAndCommit(ctx context.Context, build func() (*Request, error)) (*Response, error) {
	req, err := build()
	if err != nil {
		return nil, err
	}
	return g.commit(ctx, req)
}

func (g *Gateway) endpointFor(t RequestType) (string, error) {
	switch t {
	case TypeAuth, TypeSettle, TypeRebate, TypeVoid:
		return g.config.RemoteURL, nil
	case TypeVerifyEnrolled, TypeVerifySig:
		return g.config.ThreeDSecureURL, nil
	case TypeCardNew, TypeCardCancel, TypeReceiptIn, TypePayerNew:
		return g.config.PluginsURL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRequestType, t)
}

// commit performs one round trip. Transport and parse failures come back as failed
// responses with Err set; only request construction problems are returned as errors.
func (g *Gateway) commit(ctx context.Context, req *Request) (*Response, error) {
	endpoint, err := g.endpointFor(req.Type())
	if err != nil {
		return nil, err
	}
	body, err := req.Marshal()
	if err != nil {
		return nil, err
	}

	requestType := string(req.Type())
	g.logger.Info("Sending Realex request",
		zap.String("request_type", requestType),
		zap.String("order_id", req.OrderID()),
		zap.String("timestamp", req.Timestamp()),
	)

	start := time.Now()
	raw, err := g.transport.Post(ctx, endpoint, body)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordGatewayRequest(requestType, observability.OutcomeTransportError, "", elapsed)
		g.logger.Error("Realex request failed",
			zap.String("request_type", requestType),
			zap.String("order_id", req.OrderID()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		perr := pkgerrors.NewPaymentError("transport_error", "gateway request failed", pkgerrors.CategoryNetworkError, true).WithCause(err)
		return &Response{Success: false, Message: perr.Error(), Err: perr}, nil
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		observability.RecordGatewayRequest(requestType, observability.OutcomeTransportError, "", elapsed)
		g.logger.Error("Unreadable Realex response",
			zap.String("request_type", requestType),
			zap.Int("body_length", len(raw)),
			zap.Error(err),
		)
		perr := pkgerrors.NewPaymentError("invalid_response", "gateway response could not be parsed", pkgerrors.CategorySystemError, false).WithCause(err)
		return &Response{Success: false, Message: perr.Error(), Raw: raw, Err: perr}, nil
	}

	outcome := observability.OutcomeSuccess
	if !resp.Success {
		outcome = observability.OutcomeDeclined
	}
	observability.RecordGatewayRequest(requestType, outcome, resp.Result, elapsed)

	info := LookupResultCode(resp.Result)
	g.logger.Info("Received Realex response",
		zap.String("request_type", requestType),
		zap.String("order_id", req.OrderID()),
		zap.String("result", resp.Result),
		zap.String("category", string(info.Category)),
		zap.Bool("retriable", info.IsRetriable),
		zap.String("message", resp.Message),
		zap.Duration("elapsed", elapsed),
	)
	return resp, nil
}
