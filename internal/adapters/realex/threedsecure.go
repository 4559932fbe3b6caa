package realex

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevin07696/realex-gateway/internal/domain/models"
	"github.com/kevin07696/realex-gateway/pkg/observability"
	"go.uber.org/zap"
)

// Fixed messages for 3-D Secure terminal failures
const (
	MessageNotEnrolled             = "Not enrolled in 3DSecure Error."
	MessageVerificationRejected    = "3DSecure password entered incorrectly. Aborting transaction."
	MessageVerificationUnavailable = "3DSecure verification unavailable. Aborting transaction."
)

// EnrollmentOutcome classifies a 3ds-verifyenrolled reply
type EnrollmentOutcome int

const (
	EnrollmentUnrecognized EnrollmentOutcome = iota
	Enrolled
	NotEnrolled
	NotEnrolledUnsupportedBrand
	Unavailable
)

func (o EnrollmentOutcome) String() string {
	switch o {
	case Enrolled:
		return "enrolled"
	case NotEnrolled:
		return "not_enrolled"
	case NotEnrolledUnsupportedBrand:
		return "not_enrolled_unsupported_brand"
	case Unavailable:
		return "unavailable"
	default:
		return "unrecognized"
	}
}

// VerificationOutcome classifies a 3ds-verifysig reply
type VerificationOutcome int

const (
	VerificationUnrecognized VerificationOutcome = iota
	Verified
	Rejected
)

func (o VerificationOutcome) String() string {
	switch o {
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	default:
		return "unrecognized"
	}
}

// ClassifyEnrollment maps the enrolled flag onto an outcome. A not-enrolled card only
// falls back to a plain purchase when its brand is in fallbackBrands.
func ClassifyEnrollment(resp *Response, brand models.CardBrand, fallbackBrands map[models.CardBrand]bool) EnrollmentOutcome {
	if resp == nil || resp.ThreeDSecure == nil {
		return EnrollmentUnrecognized
	}
	switch resp.ThreeDSecure.Enrolled {
	case "Y":
		return Enrolled
	case "N":
		if fallbackBrands[brand] {
			return NotEnrolled
		}
		return NotEnrolledUnsupportedBrand
	case "U":
		return Unavailable
	default:
		return EnrollmentUnrecognized
	}
}

// ClassifyVerification maps the threedsecure status onto an outcome. "A" (attempted) counts as verified.
func ClassifyVerification(resp *Response) VerificationOutcome {
	if resp == nil || resp.ThreeDSecure == nil {
		return VerificationUnrecognized
	}
	switch resp.ThreeDSecure.Status {
	case "Y", "A":
		return Verified
	case "N":
		return Rejected
	default:
		return VerificationUnrecognized
	}
}

const maxRoundTrips = 2

var errRoundTripLimit = errors.New("3-D Secure flow exceeded its round trip limit")

// threeDSecureFlow runs one authorize or purchase, including any 3-D Secure round trip.
// It is single-use and issues at most two strictly sequential requests.
type threeDSecureFlow struct {
	gateway *Gateway
	amount  int64
	card    models.CreditCard
	opts    Options
	settle  bool

	trips []RequestType
}

func newThreeDSecureFlow(g *Gateway, amount int64, card models.CreditCard, opts Options, settle bool) *threeDSecureFlow {
	return &threeDSecureFlow{gateway: g, amount: amount, card: card, opts: opts, settle: settle}
}

func (f *threeDSecureFlow) run(ctx context.Context) (*Response, error) {
	switch {
	case f.opts.ThreeDSecure:
		return f.checkEnrollment(ctx)
	case f.opts.ThreeDSecureAuth != nil:
		return f.verifySignature(ctx)
	default:
		// plain, or with a ThreeDSecureSig embedded as mpi
		return f.purchase(ctx, f.opts)
	}
}

func (f *threeDSecureFlow) send(ctx context.Context, req *Request) (*Response, error) {
	if len(f.trips) >= maxRoundTrips {
		return nil, fmt.Errorf("%w: already sent %v", errRoundTripLimit, f.trips)
	}
	f.trips = append(f.trips, req.Type())
	return f.gateway.commit(ctx, req)
}

func (f *threeDSecureFlow) purchase(ctx context.Context, opts Options) (*Response, error) {
	req, err := f.gateway.builder.BuildAuthorization(f.amount, f.card, opts, f.settle)
	if err != nil {
		return nil, err
	}
	return f.send(ctx, req)
}

func (f *threeDSecureFlow) checkEnrollment(ctx context.Context) (*Response, error) {
	req, err := f.gateway.builder.BuildVerifyEnrolled(f.amount, f.card, f.opts)
	if err != nil {
		return nil, err
	}

	resp, err := f.send(ctx, req)
	if err != nil || resp.Err != nil {
		return resp, err
	}
	if resp.ThreeDSecure == nil && !resp.Success {
		return resp, nil
	}

	outcome := ClassifyEnrollment(resp, f.card.Brand, f.gateway.fallbackBrands)
	observability.RecordThreeDSecureOutcome("enrollment", outcome.String())
	f.gateway.logger.Info("3-D Secure enrollment checked",
		zap.String("order_id", f.opts.OrderID),
		zap.String("outcome", outcome.String()),
	)

	switch outcome {
	case Enrolled:
		return resp, nil
	case NotEnrolled:
		observability.RecordThreeDSecureFallback()
		opts := f.opts
		opts.ThreeDSecure = false
		return f.purchase(ctx, opts)
	case NotEnrolledUnsupportedBrand, Unavailable, EnrollmentUnrecognized:
		return terminalFailure(resp, MessageNotEnrolled), nil
	}
	return nil, fmt.Errorf("unhandled enrollment outcome %v", outcome)
}

func (f *threeDSecureFlow) verifySignature(ctx context.Context) (*Response, error) {
	req, err := f.gateway.builder.BuildVerifySignature(f.amount, f.card, f.opts)
	if err != nil {
		return nil, err
	}

	resp, err := f.send(ctx, req)
	if err != nil || resp.Err != nil || !resp.Success {
		return resp, err
	}

	outcome := ClassifyVerification(resp)
	observability.RecordThreeDSecureOutcome("verification", outcome.String())
	f.gateway.logger.Info("3-D Secure signature verified",
		zap.String("order_id", f.opts.OrderID),
		zap.String("outcome", outcome.String()),
	)

	switch outcome {
	case Verified:
		opts := f.opts
		opts.ThreeDSecureAuth = nil
		if tds := resp.ThreeDSecure; tds.ECI != "" {
			opts.ThreeDSecureSig = &ThreeDSecureSignature{ECI: tds.ECI, CAVV: tds.CAVV, XID: tds.XID}
		}
		return f.purchase(ctx, opts)
	case Rejected:
		return terminalFailure(resp, MessageVerificationRejected), nil
	case VerificationUnrecognized:
		return terminalFailure(resp, MessageVerificationUnavailable), nil
	}
	return nil, fmt.Errorf("unhandled verification outcome %v", outcome)
}

// terminalFailure keeps the 3-D Secure details of resp but reports failure with a fixed message
func terminalFailure(resp *Response, message string) *Response {
	out := *resp
	out.Success = false
	out.Message = message
	return &out
}
