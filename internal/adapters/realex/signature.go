package realex

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// RequestType is the discriminator carried in the type attribute of every request
type RequestType string

const (
	TypeAuth           RequestType = "auth"
	TypeVerifyEnrolled RequestType = "3ds-verifyenrolled"
	TypeVerifySig      RequestType = "3ds-verifysig"
	TypeSettle         RequestType = "settle"
	TypeRebate         RequestType = "rebate"
	TypeVoid           RequestType = "void"
	TypeCardNew        RequestType = "card-new"
	TypeCardCancel     RequestType = "card-cancel-card"
	TypeReceiptIn      RequestType = "receipt-in"
	TypePayerNew       RequestType = "payer-new"
)

// ErrUnknownRequestType is returned when a request type has no signing order
var ErrUnknownRequestType = errors.New("unknown request type")

type signedField int

const (
	fieldTimestamp signedField = iota
	fieldMerchantID
	fieldOrderID
	fieldAmount
	fieldCurrency
	fieldCardNumber
	fieldPasref
	fieldAuthCode
	fieldCardRef
	fieldPayerRef
)

var (
	cardBearingOrder = []signedField{fieldTimestamp, fieldMerchantID, fieldOrderID, fieldAmount, fieldCurrency, fieldCardNumber}
	referenceOrder   = []signedField{fieldTimestamp, fieldMerchantID, fieldOrderID, fieldPasref, fieldAuthCode}
)

// signedFieldOrder is the positional contract the gateway verifies each sha1hash against.
// Empty values still occupy their slot.
var signedFieldOrder = map[RequestType][]signedField{
	TypeAuth:           cardBearingOrder,
	TypeVerifyEnrolled: cardBearingOrder,
	TypeVerifySig:      cardBearingOrder,
	TypeSettle:         referenceOrder,
	TypeVoid:           referenceOrder,
	TypeRebate:         {fieldTimestamp, fieldMerchantID, fieldOrderID, fieldPasref, fieldAuthCode, fieldAmount, fieldCurrency},
	TypeCardNew:        {fieldTimestamp, fieldMerchantID, fieldOrderID, fieldCardRef, fieldPayerRef},
	TypeCardCancel:     {fieldTimestamp, fieldMerchantID, fieldPayerRef, fieldCardRef},
	TypeReceiptIn:      {fieldTimestamp, fieldMerchantID, fieldOrderID, fieldAmount, fieldCurrency, fieldPayerRef},
	TypePayerNew:       {fieldTimestamp, fieldMerchantID, fieldOrderID},
}

// SigningContext holds every value that may take part in a request signature.
// Values picks the ones relevant to Type in the order the gateway expects.
type SigningContext struct {
	Type       RequestType
	Timestamp  string
	MerchantID string
	OrderID    string
	Amount     string
	Currency   string
	CardNumber string
	Pasref     string
	AuthCode   string
	CardRef    string
	PayerRef   string
}

func (c SigningContext) value(f signedField) string {
	switch f {
	case fieldTimestamp:
		return c.Timestamp
	case fieldMerchantID:
		return c.MerchantID
	case fieldOrderID:
		return c.OrderID
	case fieldAmount:
		return c.Amount
	case fieldCurrency:
		return c.Currency
	case fieldCardNumber:
		return c.CardNumber
	case fieldPasref:
		return c.Pasref
	case fieldAuthCode:
		return c.AuthCode
	case fieldCardRef:
		return c.CardRef
	case fieldPayerRef:
		return c.PayerRef
	}
	return ""
}

// Values returns the ordered value chain for the context's request type
func (c SigningContext) Values() ([]string, error) {
	order, ok := signedFieldOrder[c.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequestType, c.Type)
	}

	values := make([]string, len(order))
	for i, f := range order {
		values[i] = c.value(f)
	}
	return values, nil
}

// Sign computes the request signature under the shared secret
func (c SigningContext) Sign(secret string) (string, error) {
	values, err := c.Values()
	if err != nil {
		return "", err
	}
	return Sign(values, secret), nil
}

// Sign returns the lowercase hex SHA1 of the dot-joined values followed by "." and the secret
func Sign(values []string, secret string) string {
	sum := sha1.Sum([]byte(strings.Join(values, ".") + "." + secret))
	return hex.EncodeToString(sum[:])
}

// RefundHash signs the refund identifiers under the rebate secret.
// It accompanies, and never replaces, the sha1hash of a rebate request.
func RefundHash(orderID, pasref, authCode, amount, currency, rebateSecret string) string {
	return Sign([]string{orderID, pasref, authCode, amount, currency}, rebateSecret)
}
