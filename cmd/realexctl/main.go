package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/realex-gateway/internal/adapters/realex"
	"github.com/kevin07696/realex-gateway/internal/config"
	"github.com/kevin07696/realex-gateway/internal/domain/models"
	"github.com/kevin07696/realex-gateway/internal/services/merchant"
	"github.com/kevin07696/realex-gateway/pkg/logging"
)

const usage = `Usage: realexctl -action=<action> [options]
Actions:
  authorize    - Authorize a card (optionally with -3ds, -pares or -eci)
  purchase     - Authorize and settle a card
  capture      - Settle a prior authorization (-authcode, -pasref)
  void         - Void a prior transaction (-authcode, -pasref)
  credit       - Refund a settled transaction (-amount, -authcode, -pasref)
  store        - Store a card for a payer (-payment-method, -payer)
  unstore      - Remove a stored card (-payment-method, -payer)
  store-payer  - Create a payer record (-payer)
  recurring    - Charge a stored card (-amount, -payment-method, -payer)
  put-secret   - Write a merchant secret (-secret-path, -secret-value)
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		} else {
			fmt.Fprintln(os.Stderr, "realexctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logger.Level, Development: cfg.Logger.Development})
	if err != nil {
		return err
	}
	defer logger.Sync()

	secretMgr, closeSecrets, err := initSecretManager(ctx, cfg.Secrets, logger)
	if err != nil {
		return err
	}
	defer closeSecrets()

	if f.action == "put-secret" {
		if f.secretPath == "" || f.secretValue == "" {
			return fmt.Errorf("%w: put-secret needs -secret-path and -secret-value", errUsage)
		}
		version, err := secretMgr.PutSecret(ctx, f.secretPath, f.secretValue, map[string]string{"merchant_id": cfg.Realex.MerchantID})
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]string{"path": f.secretPath, "version": version})
	}

	resolver := merchant.NewCredentialResolver(secretMgr, logger, cfg.Secrets.CacheTTL)
	creds, err := resolver.Resolve(ctx, merchant.CredentialSource{
		MerchantID:       cfg.Realex.MerchantID,
		Account:          cfg.Realex.Account,
		SecretPath:       cfg.Realex.SecretPath,
		RebateSecretPath: cfg.Realex.RebateSecretPath,
	})
	if err != nil {
		return err
	}

	transportCfg := realex.DefaultHTTPTransportConfig()
	transportCfg.Timeout = cfg.Realex.Timeout
	transportCfg.RateLimit = cfg.Realex.RateLimit
	transportCfg.Burst = cfg.Realex.RateBurst
	transport := realex.NewHTTPTransport(transportCfg, logger)

	gateway, err := realex.NewGateway(gatewayConfig(cfg.Realex), creds, transport, logger)
	if err != nil {
		return err
	}

	resp, err := dispatch(ctx, gateway, f)
	if err != nil {
		return err
	}

	if path := cfg.Metrics.TextfilePath; path != "" {
		if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
			logger.Warn("Failed to write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}

	return writeJSON(stdout, newResult(resp))
}

// gatewayConfig overlays configured endpoints and policy on the production defaults
func gatewayConfig(rc config.RealexConfig) realex.Config {
	gc := realex.DefaultConfig()
	if rc.RemoteURL != "" {
		gc.RemoteURL = rc.RemoteURL
	}
	if rc.ThreeDSecureURL != "" {
		gc.ThreeDSecureURL = rc.ThreeDSecureURL
	}
	if rc.PluginsURL != "" {
		gc.PluginsURL = rc.PluginsURL
	}
	if rc.Currency != "" {
		gc.Currency = rc.Currency
	}
	if len(rc.FallbackBrands) > 0 {
		gc.FallbackBrands = make([]models.CardBrand, 0, len(rc.FallbackBrands))
		for _, b := range rc.FallbackBrands {
			gc.FallbackBrands = append(gc.FallbackBrands, models.CardBrand(b))
		}
	}
	return gc
}

func dispatch(ctx context.Context, g *realex.Gateway, f *cliFlags) (*realex.Response, error) {
	opts := f.options()

	switch f.action {
	case "authorize", "purchase", "credit", "recurring":
		amount, err := f.minorUnits()
		if err != nil {
			return nil, err
		}
		switch f.action {
		case "authorize":
			return g.Authorize(ctx, amount, f.card(), withOrderID(opts))
		case "purchase":
			return g.Purchase(ctx, amount, f.card(), withOrderID(opts))
		case "credit":
			return g.Credit(ctx, amount, f.authCode, opts)
		default:
			return g.RecurringPurchase(ctx, amount, withOrderID(opts))
		}
	case "capture":
		return g.Capture(ctx, f.authCode, opts)
	case "void":
		return g.Void(ctx, f.authCode, opts)
	case "store":
		return g.Store(ctx, f.card(), withOrderID(opts))
	case "unstore":
		return g.Unstore(ctx, f.card(), opts)
	case "store-payer":
		return g.StorePayer(ctx, withOrderID(opts))
	}
	return nil, fmt.Errorf("%w: unknown action %q", errUsage, f.action)
}

// withOrderID fills in a fresh order id for operations that start a new order
func withOrderID(opts realex.Options) realex.Options {
	if opts.OrderID == "" {
		opts.OrderID = realex.NewOrderID()
	}
	return opts
}

type cliFlags struct {
	action  string
	envFile string

	amount   string
	currency string
	orderID  string
	pasref   string
	authCode string

	cardNumber string
	expMonth   int
	expYear    int
	firstName  string
	lastName   string
	brand      string
	cvv        string

	threeDSecure bool
	paRes        string
	eci          string
	cavv         string
	xid          string

	street  string
	zip     string
	country string
	skipAVS bool

	paymentMethod  string
	payerID        string
	payerFirstName string
	payerLastName  string

	secretPath  string
	secretValue string
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("realexctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&f.action, "action", "", "Action to perform")
	fs.StringVar(&f.envFile, "env", ".env", "Environment file to load")

	fs.StringVar(&f.amount, "amount", "", "Amount in major units, e.g. 10.50")
	fs.StringVar(&f.currency, "currency", "", "Currency code (default from REALEX_CURRENCY)")
	fs.StringVar(&f.orderID, "order-id", "", "Order id (generated when empty for new orders)")
	fs.StringVar(&f.pasref, "pasref", "", "Gateway reference of the original transaction")
	fs.StringVar(&f.authCode, "authcode", "", "Authorization code of the original transaction")

	fs.StringVar(&f.cardNumber, "card", "", "Card number")
	fs.IntVar(&f.expMonth, "exp-month", 0, "Card expiry month")
	fs.IntVar(&f.expYear, "exp-year", 0, "Card expiry year")
	fs.StringVar(&f.firstName, "first-name", "", "Cardholder first name")
	fs.StringVar(&f.lastName, "last-name", "", "Cardholder last name")
	fs.StringVar(&f.brand, "brand", "visa", "Card brand: visa, master, american_express, diners_club, switch, solo, laser")
	fs.StringVar(&f.cvv, "cvv", "", "Card verification value")

	fs.BoolVar(&f.threeDSecure, "3ds", false, "Check 3-D Secure enrollment first")
	fs.StringVar(&f.paRes, "pares", "", "PaRes returned by the issuer")
	fs.StringVar(&f.eci, "eci", "", "ECI of an already verified 3-D Secure authentication")
	fs.StringVar(&f.cavv, "cavv", "", "CAVV of an already verified 3-D Secure authentication")
	fs.StringVar(&f.xid, "xid", "", "XID of an already verified 3-D Secure authentication")

	fs.StringVar(&f.street, "street", "", "Billing street address")
	fs.StringVar(&f.zip, "zip", "", "Billing postal code (enables address verification)")
	fs.StringVar(&f.country, "country", "", "Billing country")
	fs.BoolVar(&f.skipAVS, "skip-avs", false, "Send the postal code verbatim instead of the AVS code")

	fs.StringVar(&f.paymentMethod, "payment-method", "", "Stored card reference")
	fs.StringVar(&f.payerID, "payer", "", "Payer reference")
	fs.StringVar(&f.payerFirstName, "payer-first-name", "", "Payer first name")
	fs.StringVar(&f.payerLastName, "payer-last-name", "", "Payer last name")

	fs.StringVar(&f.secretPath, "secret-path", "", "Secret path for put-secret")
	fs.StringVar(&f.secretValue, "secret-value", "", "Secret value for put-secret")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.action == "" {
		return nil, fmt.Errorf("%w: -action is required", errUsage)
	}
	return f, nil
}

func (f *cliFlags) minorUnits() (int64, error) {
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return 0, fmt.Errorf("invalid -amount %q: %w", f.amount, err)
	}
	return models.MinorUnits(amount)
}

func (f *cliFlags) card() models.CreditCard {
	return models.CreditCard{
		Number:            f.cardNumber,
		Month:             f.expMonth,
		Year:              f.expYear,
		FirstName:         f.firstName,
		LastName:          f.lastName,
		Brand:             models.CardBrand(f.brand),
		VerificationValue: f.cvv,
	}
}

func (f *cliFlags) options() realex.Options {
	opts := realex.Options{
		OrderID:       f.orderID,
		Currency:      f.currency,
		Pasref:        f.pasref,
		ThreeDSecure:  f.threeDSecure,
		SkipAVSCheck:  f.skipAVS,
		PaymentMethod: f.paymentMethod,
	}
	if f.paRes != "" {
		opts.ThreeDSecureAuth = &realex.ThreeDSecureAuth{PaRes: f.paRes}
	}
	if f.eci != "" || f.cavv != "" || f.xid != "" {
		opts.ThreeDSecureSig = &realex.ThreeDSecureSignature{ECI: f.eci, CAVV: f.cavv, XID: f.xid}
	}
	if f.zip != "" || f.country != "" {
		opts.BillingAddress = &models.Address{Address1: f.street, Zip: f.zip, Country: f.country}
	}
	if f.payerID != "" {
		opts.Payer = &models.Payer{ID: f.payerID, FirstName: f.payerFirstName, LastName: f.payerLastName}
	}
	return opts
}

type result struct {
	Success   bool   `json:"success"`
	Result    string `json:"result,omitempty"`
	Category  string `json:"category,omitempty"`
	Retriable bool   `json:"retriable,omitempty"`
	Message   string `json:"message"`
	OrderID   string `json:"order_id,omitempty"`
	AuthCode  string `json:"authcode,omitempty"`
	Pasref    string `json:"pasref,omitempty"`
	CVVResult string `json:"cvv_result,omitempty"`

	AVSPostcode string `json:"avs_postcode,omitempty"`
	AVSStreet   string `json:"avs_street,omitempty"`

	Enrolled string `json:"enrolled,omitempty"`
	ACSURL   string `json:"acs_url,omitempty"`
	PaReq    string `json:"pareq,omitempty"`
	Status   string `json:"status,omitempty"`
	ECI      string `json:"eci,omitempty"`
	XID      string `json:"xid,omitempty"`
	CAVV     string `json:"cavv,omitempty"`

	Error string `json:"error,omitempty"`
}

func newResult(resp *realex.Response) result {
	r := result{
		Success:  resp.Success,
		Result:   resp.Result,
		Message:  resp.Message,
		OrderID:  resp.OrderID,
		AuthCode: resp.AuthCode,
		Pasref:   resp.Pasref,
	}
	if resp.Result != "" {
		info := realex.LookupResultCode(resp.Result)
		r.Category = string(info.Category)
		r.Retriable = info.IsRetriable
	}
	if resp.CVVResult != nil {
		r.CVVResult = *resp.CVVResult
	}
	if avs := resp.AVS; avs != nil {
		r.AVSPostcode = avs.PostcodeCode
		r.AVSStreet = avs.StreetCode
	}
	if tds := resp.ThreeDSecure; tds != nil {
		r.Enrolled = tds.Enrolled
		r.ACSURL = tds.URL
		r.PaReq = tds.PaReq
		r.Status = tds.Status
		r.ECI = tds.ECI
		r.XID = tds.XID
		r.CAVV = tds.CAVV
	}
	if resp.Err != nil {
		r.Error = resp.Err.Error()
	}
	return r
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
