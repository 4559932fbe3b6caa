package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// One observation per network round trip, not per logical operation
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realex_gateway_requests_total",
		Help: "Total number of requests sent to the Realex gateway",
	}, []string{
		"request_type", // auth, 3ds-verifyenrolled, settle, rebate, ...
		"outcome",      // success, declined, transport_error
		"result_code",  // 00, 101, 110, 508, ... (empty on transport errors)
	})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "realex_gateway_request_duration_seconds",
		Help:    "Round-trip duration of Realex gateway requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"request_type",
	})

	threeDSecureOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realex_3ds_outcomes_total",
		Help: "3-D Secure enrollment and verification outcomes",
	}, []string{
		"stage",   // enrollment, verification
		"outcome", // enrolled, not_enrolled, unavailable, verified, rejected, ...
	})

	threeDSecureFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realex_3ds_fallback_purchases_total",
		Help: "Purchases issued automatically after a 3-D Secure step",
	})

	credentialLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realex_credential_lookups_total",
		Help: "Merchant secret lookups against the secret manager",
	}, []string{
		"secret",  // shared, rebate
		"outcome", // ok, not_found, error
	})
)

// Outcome labels for RecordGatewayRequest
const (
	OutcomeSuccess        = "success"
	OutcomeDeclined       = "declined"
	OutcomeTransportError = "transport_error"
)

// RecordGatewayRequest records a single round trip to the gateway
func RecordGatewayRequest(requestType, outcome, resultCode string, duration time.Duration) {
	gatewayRequestsTotal.WithLabelValues(requestType, outcome, resultCode).Inc()
	gatewayRequestDuration.WithLabelValues(requestType).Observe(duration.Seconds())
}

// RecordThreeDSecureOutcome records a classified enrollment or verification result
func RecordThreeDSecureOutcome(stage, outcome string) {
	threeDSecureOutcomesTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordThreeDSecureFallback records an automatically issued second request
func RecordThreeDSecureFallback() {
	threeDSecureFallbacksTotal.Inc()
}

// RecordCredentialLookup records one secret manager read for merchant credentials
func RecordCredentialLookup(secret, outcome string) {
	credentialLookupsTotal.WithLabelValues(secret, outcome).Inc()
}
