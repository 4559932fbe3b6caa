package realex

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ResultSuccess is the result code of an accepted request
const ResultSuccess = "00"

// AVSResult holds the address-verification sub-codes
type AVSResult struct {
	PostcodeCode string
	StreetCode   string
}

// ThreeDSecure is the 3-D Secure sub-document of enrollment and verification replies
type ThreeDSecure struct {
	// enrollment
	Enrolled string
	PaReq    string
	URL      string
	XID      string

	// verification
	Status    string
	ECI       string
	CAVV      string
	Algorithm string
}

// Response is the uniform result of every gateway operation
type Response struct {
	Success  bool
	Result   string
	Message  string
	AuthCode string
	Pasref   string
	OrderID  string

	AVS          *AVSResult // nil when the gateway ran no address check
	CVVResult    *string    // nil when absent
	ThreeDSecure *ThreeDSecure

	FraudScore string // tss/result
	BatchID    string
	Timestamp  string

	Raw []byte

	// Err is set when the request never produced a gateway reply
	Err error
}

type responseDocument struct {
	XMLName     xml.Name             `xml:"response"`
	Timestamp   string               `xml:"timestamp,attr"`
	OrderID     string               `xml:"orderid"`
	AuthCode    string               `xml:"authcode"`
	Result      string               `xml:"result"`
	Message     string               `xml:"message"`
	Pasref      string               `xml:"pasref"`
	CVNResult   *string              `xml:"cvnresult"`
	AVSPostcode *string              `xml:"avspostcoderesponse"`
	AVSAddress  *string              `xml:"avsaddressresponse"`
	BatchID     string               `xml:"batchid"`
	TSSResult   string               `xml:"tss>result"`
	Enrolled    *string              `xml:"enrolled"`
	PaReq       string               `xml:"pareq"`
	URL         string               `xml:"url"`
	XID         string               `xml:"xid"`
	ThreeDS     *threeDSecureElement `xml:"threedsecure"`
}

type threeDSecureElement struct {
	Status    string `xml:"status"`
	ECI       string `xml:"eci"`
	XID       string `xml:"xid"`
	CAVV      string `xml:"cavv"`
	Algorithm string `xml:"algorithm"`
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported response charset %q", label)
}

// ParseResponse maps a gateway reply onto a Response. Text values are whitespace-trimmed.
func ParseResponse(body []byte) (*Response, error) {
	var doc responseDocument
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := strings.TrimSpace(doc.Result)
	if result == "" {
		return nil, fmt.Errorf("failed to parse response: missing result code")
	}

	resp := &Response{
		Success:    result == ResultSuccess,
		Result:     result,
		Message:    strings.TrimSpace(doc.Message),
		AuthCode:   strings.TrimSpace(doc.AuthCode),
		Pasref:     strings.TrimSpace(doc.Pasref),
		OrderID:    strings.TrimSpace(doc.OrderID),
		CVVResult:  trimmedPtr(doc.CVNResult),
		FraudScore: strings.TrimSpace(doc.TSSResult),
		BatchID:    strings.TrimSpace(doc.BatchID),
		Timestamp:  strings.TrimSpace(doc.Timestamp),
		Raw:        body,
	}

	if doc.AVSPostcode != nil || doc.AVSAddress != nil {
		resp.AVS = &AVSResult{
			PostcodeCode: derefTrimmed(doc.AVSPostcode),
			StreetCode:   derefTrimmed(doc.AVSAddress),
		}
	}

	if doc.Enrolled != nil || doc.ThreeDS != nil {
		tds := &ThreeDSecure{
			Enrolled: derefTrimmed(doc.Enrolled),
			PaReq:    strings.TrimSpace(doc.PaReq),
			URL:      strings.TrimSpace(doc.URL),
			XID:      strings.TrimSpace(doc.XID),
		}
		if v := doc.ThreeDS; v != nil {
			tds.Status = strings.TrimSpace(v.Status)
			tds.ECI = strings.TrimSpace(v.ECI)
			tds.CAVV = strings.TrimSpace(v.CAVV)
			tds.Algorithm = strings.TrimSpace(v.Algorithm)
			if x := strings.TrimSpace(v.XID); x != "" {
				tds.XID = x
			}
		}
		resp.ThreeDSecure = tds
	}

	return resp, nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func derefTrimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
