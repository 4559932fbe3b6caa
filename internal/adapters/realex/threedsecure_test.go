package realex

import (
	"context"
	"errors"
	"testing"

	"github.com/kevin07696/realex-gateway/internal/domain/models"
	pkgerrors "github.com/kevin07696/realex-gateway/pkg/errors"
	"github.com/kevin07696/realex-gateway/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testRemoteURL       = "https://gateway.test/remote"
	testThreeDSecureURL = "https://gateway.test/3dsecure"
	testPluginsURL      = "https://gateway.test/plugins"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RemoteURL = testRemoteURL
	cfg.ThreeDSecureURL = testThreeDSecureURL
	cfg.PluginsURL = testPluginsURL
	return cfg
}

func newTestGateway(t *testing.T, transport *mocks.MockTransport) *Gateway {
	t.Helper()
	g, err := NewGateway(testConfig(), testCredentials(), transport, zap.NewNop(), WithClock(fixedClock))
	require.NoError(t, err)
	return g
}

func parsed(t *testing.T, body string) *Response {
	t.Helper()
	resp, err := ParseResponse([]byte(body))
	require.NoError(t, err)
	return resp
}

func TestClassifyEnrollment(t *testing.T) {
	fallback := map[models.CardBrand]bool{models.BrandVisa: true, models.BrandMaster: true}

	tests := []struct {
		name  string
		resp  *Response
		brand models.CardBrand
		want  EnrollmentOutcome
	}{
		{name: "enrolled", resp: parsed(t, enrolledResponse), brand: models.BrandVisa, want: Enrolled},
		{name: "not enrolled visa", resp: parsed(t, notEnrolledResponse), brand: models.BrandVisa, want: NotEnrolled},
		{name: "not enrolled master", resp: parsed(t, notEnrolledResponse), brand: models.BrandMaster, want: NotEnrolled},
		{name: "not enrolled amex", resp: parsed(t, notEnrolledResponse), brand: models.BrandAmericanExpress, want: NotEnrolledUnsupportedBrand},
		{name: "unavailable", resp: parsed(t, enrollmentUnavailableResponse), brand: models.BrandVisa, want: Unavailable},
		{name: "unknown flag", resp: parsed(t, enrollmentUnknownFlagResponse), brand: models.BrandVisa, want: EnrollmentUnrecognized},
		{name: "no 3-D Secure block", resp: parsed(t, enrollmentErrorResponse), brand: models.BrandVisa, want: EnrollmentUnrecognized},
		{name: "nil response", resp: nil, brand: models.BrandVisa, want: EnrollmentUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEnrollment(tt.resp, tt.brand, fallback))
		})
	}
}

func TestClassifyVerification(t *testing.T) {
	attempted := parsed(t, verifiedSignatureResponse)
	attempted.ThreeDSecure.Status = "A"

	tests := []struct {
		name string
		resp *Response
		want VerificationOutcome
	}{
		{name: "verified", resp: parsed(t, verifiedSignatureResponse), want: Verified},
		{name: "attempted", resp: attempted, want: Verified},
		{name: "rejected", resp: parsed(t, rejectedSignatureResponse), want: Rejected},
		{name: "unknown status", resp: parsed(t, unknownStatusSignatureResponse), want: VerificationUnrecognized},
		{name: "no 3-D Secure block", resp: parsed(t, successfulPurchaseResponse), want: VerificationUnrecognized},
		{name: "nil response", resp: nil, want: VerificationUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyVerification(tt.resp))
		})
	}
}

func TestOutcomeStrings(t *testing.T) {
	assert.Equal(t, "enrolled", Enrolled.String())
	assert.Equal(t, "not_enrolled", NotEnrolled.String())
	assert.Equal(t, "not_enrolled_unsupported_brand", NotEnrolledUnsupportedBrand.String())
	assert.Equal(t, "unavailable", Unavailable.String())
	assert.Equal(t, "unrecognized", EnrollmentUnrecognized.String())
	assert.Equal(t, "verified", Verified.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "unrecognized", VerificationUnrecognized.String())
}

func TestPurchase_ThreeDSecure_NotEnrolledVisaFallsBack(t *testing.T) {
	transport := mocks.NewMockTransport(notEnrolledResponse, successfulPurchaseResponse)
	g := newTestGateway(t, transport)

	resp, err := g.Purchase(context.Background(), 100, testCard(), Options{OrderID: "1", ThreeDSecure: true})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "00", resp.Result)
	require.Equal(t, 2, transport.CallCount())

	assert.Equal(t, testThreeDSecureURL, transport.Calls[0].Endpoint)
	assert.Contains(t, string(transport.Calls[0].Body), `type="3ds-verifyenrolled"`)

	assert.Equal(t, testRemoteURL, transport.Calls[1].Endpoint)
	purchase := string(transport.Calls[1].Body)
	assert.Contains(t, purchase, `type="auth"`)
	assert.Contains(t, purchase, `<autosettle flag="1"></autosettle>`)
	assert.NotContains(t, purchase, "<mpi>")
}

func TestAuthorize_ThreeDSecure_NotEnrolledFallsBackWithoutSettling(t *testing.T) {
	transport := mocks.NewMockTransport(notEnrolledResponse, successfulPurchaseResponse)
	g := newTestGateway(t, transport)

	resp, err := g.Authorize(context.Background(), 100, testCard(), Options{OrderID: "1", ThreeDSecure: true})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Equal(t, 2, transport.CallCount())
	assert.Contains(t, string(transport.Calls[1].Body), `<autosettle flag="0"></autosettle>`)
}

func TestPurchase_ThreeDSecure_TerminalEnrollmentOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		card  models.CreditCard
	}{
		{name: "not enrolled amex", reply: notEnrolledResponse, card: amexCard()},
		{name: "enrollment unavailable", reply: enrollmentUnavailableResponse, card: testCard()},
		{name: "unknown enrolled flag", reply: enrollmentUnknownFlagResponse, card: testCard()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := mocks.NewMockTransport(tt.reply)
			g := newTestGateway(t, transport)

			resp, err := g.Purchase(context.Background(), 100, tt.card, Options{OrderID: "1", ThreeDSecure: true})
			require.NoError(t, err)

			assert.False(t, resp.Success)
			assert.Equal(t, MessageNotEnrolled, resp.Message)
			assert.Nil(t, resp.Err)
			assert.Equal(t, 1, transport.CallCount())
		})
	}
}

func TestPurchase_ThreeDSecure_EnrolledReturnsChallenge(t *testing.T) {
	transport := mocks.NewMockTransport(enrolledResponse)
	g := newTestGateway(t, transport)

	resp, err := g.Purchase(context.Background(), 100, testCard(), Options{OrderID: "1", ThreeDSecure: true})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "[ test system ] Enrolled", resp.Message)
	require.NotNil(t, resp.ThreeDSecure)
	assert.Equal(t, "http://www.acs.com", resp.ThreeDSecure.URL)
	assert.NotEmpty(t, resp.ThreeDSecure.PaReq)
	assert.Equal(t, 1, transport.CallCount())
}

func TestPurchase_ThreeDSecure_EnrollmentErrorReturnedAsIs(t *testing.T) {
	transport := mocks.NewMockTransport(enrollmentErrorResponse)
	g := newTestGateway(t, transport)

	resp, err := g.Purchase(context.Background(), 100, testCard(), Options{OrderID: "1", ThreeDSecure: true})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "502", resp.Result)
	assert.Equal(t, "Invalid card scheme directory response", resp.Message)
	assert.Equal(t, 1, transport.CallCount())
}

func TestPurchase_ThreeDSecureAuth_VerifiedPurchasesWithMPI(t *testing.T) {
	transport := mocks.NewMockTransport(verifiedSignatureWithECIResponse, successfulPurchaseResponse)
	g := newTestGateway(t, transport)

	opts := Options{OrderID: "1", ThreeDSecureAuth: &ThreeDSecureAuth{PaRes: "xxxx"}}
	resp, err := g.Purchase(context.Background(), 100, testCard(), opts)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Equal(t, 2, transport.CallCount())

	assert.Equal(t, testThreeDSecureURL, transport.Calls[0].Endpoint)
	assert.Contains(t, string(transport.Calls[0].Body), "<pares>xxxx</pares>")

	purchase := string(transport.Calls[1].Body)
	assert.Equal(t, testRemoteURL, transport.Calls[1].Endpoint)
	assert.Contains(t, purchase, "<eci>5</eci>")
	assert.Contains(t, purchase, "<cavv>AAABASY3QHgwUVdEBTdAAAAAAAA=</cavv>")
	assert.Contains(t, purchase, "<xid>crqAeMwkEL9r4POdxpByWJ1/wYg=</xid>")
	assert.NotContains(t, purchase, "<pares>")
}

func TestPurchase_ThreeDSecureAuth_VerifiedWithoutECI(t *testing.T) {
	transport := mocks.NewMockTransport(verifiedSignatureResponse, successfulPurchaseResponse)
	g := newTestGateway(t, transport)

	opts := Options{OrderID: "1", ThreeDSecureAuth: &ThreeDSecureAuth{PaRes: "xxxx"}}
	resp, err := g.Purchase(context.Background(), 100, testCard(), opts)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Equal(t, 2, transport.CallCount())
	assert.NotContains(t, string(transport.Calls[1].Body), "<mpi>")
}

func TestPurchase_ThreeDSecureAuth_TerminalVerificationOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		wantMessage string
	}{
		{name: "rejected", reply: rejectedSignatureResponse, wantMessage: MessageVerificationRejected},
		{name: "unknown status", reply: unknownStatusSignatureResponse, wantMessage: MessageVerificationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := mocks.NewMockTransport(tt.reply)
			g := newTestGateway(t, transport)

			opts := Options{OrderID: "1", ThreeDSecureAuth: &ThreeDSecureAuth{PaRes: "xxxx"}}
			resp, err := g.Purchase(context.Background(), 100, testCard(), opts)
			require.NoError(t, err)

			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.Equal(t, 1, transport.CallCount())
		})
	}
}

func TestPurchase_ThreeDSecureAuth_VerifyErrorReturnedAsIs(t *testing.T) {
	transport := mocks.NewMockTransport(signatureErrorResponse)
	g := newTestGateway(t, transport)

	opts := Options{OrderID: "1", ThreeDSecureAuth: &ThreeDSecureAuth{PaRes: "xxxx"}}
	resp, err := g.Purchase(context.Background(), 100, testCard(), opts)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "520", resp.Result)
	assert.Equal(t, "Invalid PaRes", resp.Message)
	assert.Equal(t, 1, transport.CallCount())
}

func TestPurchase_ThreeDSecureSig_SingleRequestWithMPI(t *testing.T) {
	transport := mocks.NewMockTransport(successfulPurchaseResponse)
	g := newTestGateway(t, transport)

	opts := Options{OrderID: "1", ThreeDSecureSig: &ThreeDSecureSignature{ECI: "6"}}
	resp, err := g.Purchase(context.Background(), 100, testCard(), opts)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Equal(t, 1, transport.CallCount())
	assert.Equal(t, testRemoteURL, transport.Calls[0].Endpoint)
	assert.Contains(t, string(transport.Calls[0].Body), "<eci>6</eci>")
}

func TestPurchase_ThreeDSecure_TransportFailureAborts(t *testing.T) {
	t.Run("enrollment check", func(t *testing.T) {
		transport := mocks.NewMockTransport().FailNext(errors.New("connection reset"))
		g := newTestGateway(t, transport)

		resp, err := g.Purchase(context.Background(), 100, testCard(), Options{OrderID: "1", ThreeDSecure: true})
		require.NoError(t, err)

		assert.False(t, resp.Success)
		require.Error(t, resp.Err)
		assert.Equal(t, 1, transport.CallCount())
	})

	t.Run("fallback purchase", func(t *testing.T) {
		transport := mocks.NewMockTransport(notEnrolledResponse).FailNext(errors.New("connection reset"))
		g := newTestGateway(t, transport)

		resp, err := g.Purchase(context.Background(), 100, testCard(), Options{OrderID: "1", ThreeDSecure: true})
		require.NoError(t, err)

		assert.False(t, resp.Success)
		var perr *pkgerrors.PaymentError
		require.ErrorAs(t, resp.Err, &perr)
		assert.Equal(t, pkgerrors.CategoryNetworkError, perr.Category)
		assert.Equal(t, 2, transport.CallCount())
	})

	t.Run("signature verification", func(t *testing.T) {
		transport := mocks.NewMockTransport().FailNext(errors.New("connection reset"))
		g := newTestGateway(t, transport)

		opts := Options{OrderID: "1", ThreeDSecureAuth: &ThreeDSecureAuth{PaRes: "xxxx"}}
		resp, err := g.Purchase(context.Background(), 100, testCard(), opts)
		require.NoError(t, err)

		assert.False(t, resp.Success)
		require.Error(t, resp.Err)
		assert.Equal(t, 1, transport.CallCount())
	})
}

func TestThreeDSecureFlow_RoundTripLimit(t *testing.T) {
	transport := mocks.NewMockTransport(successfulPurchaseResponse, successfulPurchaseResponse, successfulPurchaseResponse)
	g := newTestGateway(t, transport)
	flow := newThreeDSecureFlow(g, 100, testCard(), Options{OrderID: "1"}, true)

	_, err := flow.purchase(context.Background(), flow.opts)
	require.NoError(t, err)
	_, err = flow.purchase(context.Background(), flow.opts)
	require.NoError(t, err)

	_, err = flow.purchase(context.Background(), flow.opts)
	assert.ErrorIs(t, err, errRoundTripLimit)
	assert.Equal(t, 2, transport.CallCount())
}
