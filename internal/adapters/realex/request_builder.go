package realex

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kevin07696/realex-gateway/internal/domain/models"
	pkgerrors "github.com/kevin07696/realex-gateway/pkg/errors"
	"github.com/kevin07696/realex-gateway/pkg/timeutil"
)

var brandCodes = map[models.CardBrand]string{
	models.BrandVisa:            "VISA",
	models.BrandMaster:          "MC",
	models.BrandAmericanExpress: "AMEX",
	models.BrandDinersClub:      "DINERS",
	models.BrandSwitch:          "SWITCH",
	models.BrandSolo:            "SWITCH",
	models.BrandLaser:           "LASER",
}

// RequestBuilder assembles signed request documents for one merchant
type RequestBuilder struct {
	creds    Credentials
	currency string
	clock    timeutil.Clock
}

// NewRequestBuilder creates a builder. An empty currency falls back to EUR and a nil clock to UTC now.
func NewRequestBuilder(creds Credentials, currency string, clock timeutil.Clock) *RequestBuilder {
	if currency == "" {
		currency = DefaultCurrency
	}
	if clock == nil {
		clock = timeutil.Now
	}
	return &RequestBuilder{creds: creds, currency: currency, clock: clock}
}

func (b *RequestBuilder) currencyFor(opts Options) string {
	if opts.Currency != "" {
		return opts.Currency
	}
	return b.currency
}

func (b *RequestBuilder) newDocument(t RequestType) (*requestDocument, SigningContext) {
	ts := timeutil.FormatTimestamp(b.clock())
	doc := &requestDocument{
		Timestamp:  ts,
		Type:       t,
		MerchantID: b.creds.MerchantID,
		Account:    b.creds.Account,
	}
	return doc, SigningContext{Type: t, Timestamp: ts, MerchantID: b.creds.MerchantID}
}

func (b *RequestBuilder) seal(doc *requestDocument, sc SigningContext) (*Request, error) {
	sig, err := sc.Sign(b.creds.Secret)
	if err != nil {
		return nil, err
	}
	doc.SHA1Hash = sig
	return &Request{doc: *doc}, nil
}

// cardBearing fills the orderid/amount/card block shared by auth and both 3-D Secure requests
func (b *RequestBuilder) cardBearing(t RequestType, amount int64, card models.CreditCard, opts Options) (*requestDocument, SigningContext, error) {
	if err := validateAmount(amount); err != nil {
		return nil, SigningContext{}, err
	}
	if err := asValidationError("card", card.Validate()); err != nil {
		return nil, SigningContext{}, err
	}
	if err := opts.Validate(); err != nil {
		return nil, SigningContext{}, err
	}

	doc, sc := b.newDocument(t)
	currency := b.currencyFor(opts)

	doc.OrderID = stringPtr(opts.OrderID)
	doc.Amount = &amountElement{Currency: currency, Value: amount}
	doc.Card = newCardElement(card)

	sc.OrderID = opts.OrderID
	sc.Amount = strconv.FormatInt(amount, 10)
	sc.Currency = currency
	sc.CardNumber = card.Number
	return doc, sc, nil
}

// BuildAuthorization builds an auth request. settle selects purchase (autosettle 1) over authorize (0).
// A ThreeDSecureSig option embeds an mpi block; a billing address adds tssinfo.
func (b *RequestBuilder) BuildAuthorization(amount int64, card models.CreditCard, opts Options, settle bool) (*Request, error) {
	doc, sc, err := b.cardBearing(TypeAuth, amount, card, opts)
	if err != nil {
		return nil, err
	}

	doc.Autosettle = newAutosettle(settle)
	if sig := opts.ThreeDSecureSig; sig != nil {
		doc.MPI = newMPIElement(*sig)
	}
	if addr := opts.BillingAddress; addr != nil {
		doc.TSSInfo = &tssInfoElement{Address: tssAddressElement{
			Type:    "billing",
			Code:    billingCode(*addr, opts.SkipAVSCheck),
			Country: addr.Country,
		}}
	}
	return b.seal(doc, sc)
}

// BuildVerifyEnrolled builds a 3ds-verifyenrolled request
func (b *RequestBuilder) BuildVerifyEnrolled(amount int64, card models.CreditCard, opts Options) (*Request, error) {
	doc, sc, err := b.cardBearing(TypeVerifyEnrolled, amount, card, opts)
	if err != nil {
		return nil, err
	}
	return b.seal(doc, sc)
}

// BuildVerifySignature builds a 3ds-verifysig request carrying the PaRes from ThreeDSecureAuth
func (b *RequestBuilder) BuildVerifySignature(amount int64, card models.CreditCard, opts Options) (*Request, error) {
	if opts.ThreeDSecureAuth == nil {
		return nil, pkgerrors.NewValidationError("three_d_secure_auth", "is required to verify a signature")
	}
	doc, sc, err := b.cardBearing(TypeVerifySig, amount, card, opts)
	if err != nil {
		return nil, err
	}
	doc.PaRes = opts.ThreeDSecureAuth.PaRes
	return b.seal(doc, sc)
}

func (b *RequestBuilder) reference(t RequestType, authCode string, opts Options) (*requestDocument, SigningContext, error) {
	err := validation.Errors{
		"pasref": validation.Validate(opts.Pasref, validation.Required),
	}.Filter()
	if err := asValidationError("", err); err != nil {
		return nil, SigningContext{}, err
	}

	doc, sc := b.newDocument(t)
	doc.OrderID = stringPtr(opts.OrderID)
	doc.Pasref = stringPtr(opts.Pasref)
	doc.AuthCode = stringPtr(authCode)

	sc.OrderID = opts.OrderID
	sc.Pasref = opts.Pasref
	sc.AuthCode = authCode
	return doc, sc, nil
}

// BuildCapture builds a settle request for a prior authorization
func (b *RequestBuilder) BuildCapture(authCode string, opts Options) (*Request, error) {
	doc, sc, err := b.reference(TypeSettle, authCode, opts)
	if err != nil {
		return nil, err
	}
	return b.seal(doc, sc)
}

// BuildVoid builds a void request for a prior transaction
func (b *RequestBuilder) BuildVoid(authCode string, opts Options) (*Request, error) {
	doc, sc, err := b.reference(TypeVoid, authCode, opts)
	if err != nil {
		return nil, err
	}
	return b.seal(doc, sc)
}

// BuildCredit builds a rebate request. The refundhash is added only when a rebate secret is configured.
func (b *RequestBuilder) BuildCredit(amount int64, authCode string, opts Options) (*Request, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	doc, sc, err := b.reference(TypeRebate, authCode, opts)
	if err != nil {
		return nil, err
	}

	currency := b.currencyFor(opts)
	amountValue := strconv.FormatInt(amount, 10)

	doc.Amount = &amountElement{Currency: currency, Value: amount}
	if b.creds.RebateSecret != "" {
		doc.RefundHash = RefundHash(opts.OrderID, opts.Pasref, authCode, amountValue, currency, b.creds.RebateSecret)
	}
	doc.Autosettle = newAutosettle(true)

	sc.Amount = amountValue
	sc.Currency = currency
	return b.seal(doc, sc)
}

func storedCardRefs(opts Options) error {
	payerID := ""
	if opts.Payer != nil {
		payerID = opts.Payer.ID
	}
	err := validation.Errors{
		"payment_method": validation.Validate(opts.PaymentMethod, validation.Required),
		"payer":          validation.Validate(payerID, validation.Required),
	}.Filter()
	return asValidationError("", err)
}

// BuildStoreCard builds a card-new request registering card under opts.PaymentMethod for opts.Payer
func (b *RequestBuilder) BuildStoreCard(card models.CreditCard, opts Options) (*Request, error) {
	if err := storedCardRefs(opts); err != nil {
		return nil, err
	}
	if err := asValidationError("card", card.Validate()); err != nil {
		return nil, err
	}

	doc, sc := b.newDocument(TypeCardNew)
	doc.OrderID = stringPtr(opts.OrderID)
	doc.Card = newCardElement(card)
	doc.Card.Ref = opts.PaymentMethod
	doc.Card.PayerRef = opts.Payer.ID

	sc.OrderID = opts.OrderID
	sc.CardRef = opts.PaymentMethod
	sc.PayerRef = opts.Payer.ID
	return b.seal(doc, sc)
}

// BuildUnstoreCard builds a card-cancel-card request. Only the card expiry is sent.
func (b *RequestBuilder) BuildUnstoreCard(card models.CreditCard, opts Options) (*Request, error) {
	if err := storedCardRefs(opts); err != nil {
		return nil, err
	}
	err := validation.Errors{
		"Month": validation.Validate(card.Month, validation.Required, validation.Min(1), validation.Max(12)),
		"Year":  validation.Validate(card.Year, validation.Required),
	}.Filter()
	if err := asValidationError("card", err); err != nil {
		return nil, err
	}

	doc, sc := b.newDocument(TypeCardCancel)
	doc.Card = &cardElement{
		Ref:      opts.PaymentMethod,
		PayerRef: opts.Payer.ID,
		ExpDate:  timeutil.ExpiryMMYY(card.Month, card.Year),
	}

	sc.CardRef = opts.PaymentMethod
	sc.PayerRef = opts.Payer.ID
	return b.seal(doc, sc)
}

// BuildReceiptIn builds a receipt-in request charging the stored card opts.PaymentMethod
func (b *RequestBuilder) BuildReceiptIn(amount int64, opts Options) (*Request, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := storedCardRefs(opts); err != nil {
		return nil, err
	}

	doc, sc := b.newDocument(TypeReceiptIn)
	currency := b.currencyFor(opts)

	doc.OrderID = stringPtr(opts.OrderID)
	doc.Amount = &amountElement{Currency: currency, Value: amount}
	doc.PayerRef = opts.Payer.ID
	doc.PaymentMethod = opts.PaymentMethod
	doc.Autosettle = newAutosettle(true)

	sc.OrderID = opts.OrderID
	sc.Amount = strconv.FormatInt(amount, 10)
	sc.Currency = currency
	sc.PayerRef = opts.Payer.ID
	return b.seal(doc, sc)
}

// BuildPayerNew builds a payer-new request. Both the order id and payer are required.
func (b *RequestBuilder) BuildPayerNew(opts Options) (*Request, error) {
	err := validation.Errors{
		"order_id": validation.Validate(opts.OrderID, validation.Required),
		"payer":    validation.Validate(opts.Payer, validation.NotNil),
	}.Filter()
	if err := asValidationError("", err); err != nil {
		return nil, err
	}

	doc, sc := b.newDocument(TypePayerNew)
	doc.OrderID = stringPtr(opts.OrderID)
	doc.Payer = &payerElement{
		Type:      "Business",
		Ref:       opts.Payer.ID,
		FirstName: opts.Payer.FirstName,
		Surname:   opts.Payer.LastName,
	}

	sc.OrderID = opts.OrderID
	return b.seal(doc, sc)
}

func newCardElement(card models.CreditCard) *cardElement {
	cvn := &cvnElement{}
	if card.VerificationValue != "" {
		cvn.Number = card.VerificationValue
		cvn.PresInd = "1"
	}
	return &cardElement{
		Number:  card.Number,
		ExpDate: timeutil.ExpiryMMYY(card.Month, card.Year),
		CHName:  card.Name(),
		Type:    brandCodes[card.Brand],
		CVN:     cvn,
	}
}

func newMPIElement(sig ThreeDSecureSignature) *mpiElement {
	mpi := &mpiElement{ECI: sig.ECI}
	if sig.CAVV != "" && sig.XID != "" {
		mpi.CAVV = sig.CAVV
		mpi.XID = sig.XID
	}
	return mpi
}

func newAutosettle(settle bool) *autosettleElement {
	if settle {
		return &autosettleElement{Flag: "1"}
	}
	return &autosettleElement{Flag: "0"}
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return pkgerrors.NewValidationError("amount", "must be a positive number of minor units")
	}
	return nil
}

func stringPtr(s string) *string {
	return &s
}
