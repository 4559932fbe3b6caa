package realex

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the state of the transport circuit breaker
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned without contacting the gateway while the circuit is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open probe slot is taken
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	MaxFailures         uint32        // consecutive failures before opening
	OpenTimeout         time.Duration // time spent open before probing
	MaxRequestsHalfOpen uint32
}

// DefaultCircuitBreakerConfig opens after 5 consecutive failures and probes again after 30s
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		OpenTimeout:         30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

// CircuitBreaker stops posting to an endpoint that keeps failing at the transport level.
// Gateway declines are successful round trips and never trip it.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitState
	failures         uint32
	requestsHalfOpen uint32
	changedAt        time.Time
	config           CircuitBreakerConfig
	now              func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state:     StateClosed,
		changedAt: time.Now(),
		config:    config,
		now:       time.Now,
	}
}

// Call runs fn unless the circuit rejects it, and records the outcome
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.changedAt) < cb.config.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.requestsHalfOpen >= cb.config.MaxRequestsHalfOpen {
			return ErrTooManyRequests
		}
		cb.requestsHalfOpen++
		return nil
	}
	return ErrCircuitOpen
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.transition(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(next CircuitState) {
	if cb.state == next {
		return
	}
	cb.state = next
	cb.changedAt = cb.now()
	cb.requestsHalfOpen = 0
	if next != StateOpen {
		cb.failures = 0
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
