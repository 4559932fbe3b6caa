package realex

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/kevin07696/realex-gateway/internal/domain/models"
	pkgerrors "github.com/kevin07696/realex-gateway/pkg/errors"
)

// DefaultCurrency is used when neither the options nor the gateway config name one
const DefaultCurrency = "EUR"

// Credentials identify the merchant to the gateway. Read-only after construction.
type Credentials struct {
	MerchantID   string
	Account      string
	Secret       string
	RebateSecret string // optional; enables refundhash on credits
}

// Validate requires the merchant id and shared secret
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MerchantID, validation.Required),
		validation.Field(&c.Secret, validation.Required),
	)
}

// ThreeDSecureAuth carries the payload returned by the issuer's access control server
type ThreeDSecureAuth struct {
	PaRes string
}

// Validate requires the PaRes payload
func (a ThreeDSecureAuth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.PaRes, validation.Required),
	)
}

// ThreeDSecureSignature carries authentication results verified outside this client
type ThreeDSecureSignature struct {
	ECI  string
	CAVV string
	XID  string
}

// Validate requires eci; cavv and xid are optional
func (s ThreeDSecureSignature) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ECI, validation.Required),
	)
}

// Options are the per-call inputs shared by every gateway operation
type Options struct {
	OrderID  string
	Currency string
	Pasref   string

	// At most one of the three 3-D Secure entries may be set
	ThreeDSecure     bool
	ThreeDSecureAuth *ThreeDSecureAuth
	ThreeDSecureSig  *ThreeDSecureSignature

	SkipAVSCheck    bool
	BillingAddress  *models.Address
	ShippingAddress *models.Address

	PaymentMethod string // stored card reference
	Payer         *models.Payer
}

// Validate checks option consistency independent of the operation
func (o Options) Validate() error {
	set := 0
	if o.ThreeDSecure {
		set++
	}
	if o.ThreeDSecureAuth != nil {
		set++
	}
	if o.ThreeDSecureSig != nil {
		set++
	}
	if set > 1 {
		return pkgerrors.NewValidationError("three_d_secure", "three_d_secure, three_d_secure_auth and three_d_secure_sig are mutually exclusive")
	}

	err := validation.Errors{
		"three_d_secure_auth": validation.Validate(o.ThreeDSecureAuth),
		"three_d_secure_sig":  validation.Validate(o.ThreeDSecureSig),
		"billing_address":     validation.Validate(o.BillingAddress),
		"payer":               validation.Validate(o.Payer),
	}.Filter()
	return asValidationError("", err)
}

// NewOrderID returns a fresh order identifier accepted by the gateway (alphanumeric, at most 40 characters)
func NewOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// asValidationError flattens ozzo errors into the first failing field, sorted by name
func asValidationError(prefix string, err error) error {
	if err == nil {
		return nil
	}

	var ve *pkgerrors.ValidationError
	if errors.As(err, &ve) {
		return ve
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		keys := make([]string, 0, len(fieldErrs))
		for k := range fieldErrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		field := keys[0]
		if prefix != "" {
			field = prefix + "." + field
		}
		return pkgerrors.NewValidationError(field, fieldErrs[keys[0]].Error())
	}

	field := prefix
	if field == "" {
		field = "request"
	}
	return pkgerrors.NewValidationError(field, err.Error())
}
