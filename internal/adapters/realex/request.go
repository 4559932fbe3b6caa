package realex

import (
	"encoding/xml"
	"fmt"
)

// requestDocument is the wire layout shared by all ten request kinds.
// Field order is element order; each kind populates its own subset.
type requestDocument struct {
	XMLName       xml.Name           `xml:"request"`
	Timestamp     string             `xml:"timestamp,attr"`
	Type          RequestType        `xml:"type,attr"`
	MerchantID    string             `xml:"merchantid"`
	Account       string             `xml:"account"`
	OrderID       *string            `xml:"orderid"`
	Pasref        *string            `xml:"pasref"`
	AuthCode      *string            `xml:"authcode"`
	Amount        *amountElement     `xml:"amount"`
	Card          *cardElement       `xml:"card"`
	PayerRef      string             `xml:"payerref,omitempty"`
	PaymentMethod string             `xml:"paymentmethod,omitempty"`
	PaRes         string             `xml:"pares,omitempty"`
	RefundHash    string             `xml:"refundhash,omitempty"`
	Autosettle    *autosettleElement `xml:"autosettle"`
	MPI           *mpiElement        `xml:"mpi"`
	Payer         *payerElement      `xml:"payer"`
	TSSInfo       *tssInfoElement    `xml:"tssinfo"`
	SHA1Hash      string             `xml:"sha1hash"`
}

type amountElement struct {
	Currency string `xml:"currency,attr"`
	Value    int64  `xml:",chardata"`
}

type cardElement struct {
	Ref      string      `xml:"ref,omitempty"`
	PayerRef string      `xml:"payerref,omitempty"`
	Number   string      `xml:"number,omitempty"`
	ExpDate  string      `xml:"expdate"`
	CHName   string      `xml:"chname,omitempty"`
	Type     string      `xml:"type,omitempty"`
	CVN      *cvnElement `xml:"cvn"`
}

type cvnElement struct {
	Number  string `xml:"number"`
	PresInd string `xml:"presind"`
}

type autosettleElement struct {
	Flag string `xml:"flag,attr"`
}

type mpiElement struct {
	ECI  string `xml:"eci"`
	CAVV string `xml:"cavv,omitempty"`
	XID  string `xml:"xid,omitempty"`
}

type payerElement struct {
	Type      string `xml:"type,attr"`
	Ref       string `xml:"ref,attr"`
	FirstName string `xml:"firstname"`
	Surname   string `xml:"surname"`
}

type tssInfoElement struct {
	Address tssAddressElement `xml:"address"`
}

type tssAddressElement struct {
	Type    string `xml:"type,attr"`
	Code    string `xml:"code"`
	Country string `xml:"country"`
}

// Request is a built and signed request. It is never modified after construction.
type Request struct {
	doc requestDocument
}

// Type returns the request discriminator
func (r *Request) Type() RequestType { return r.doc.Type }

// Timestamp returns the 14-digit timestamp the request was signed with
func (r *Request) Timestamp() string { return r.doc.Timestamp }

// Signature returns the embedded sha1hash
func (r *Request) Signature() string { return r.doc.SHA1Hash }

// RefundHash returns the embedded refundhash, empty unless this is a credit with a rebate secret
func (r *Request) RefundHash() string { return r.doc.RefundHash }

// OrderID returns the order id, empty for kinds without one
func (r *Request) OrderID() string {
	if r.doc.OrderID == nil {
		return ""
	}
	return *r.doc.OrderID
}

// Marshal renders the request as an XML document
func (r *Request) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", r.doc.Type, err)
	}
	return append([]byte(xml.Header), body...), nil
}
