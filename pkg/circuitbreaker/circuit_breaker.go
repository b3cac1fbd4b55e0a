package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker guards calls to an external collaborator. After maxFailures
// consecutive failures the circuit opens and calls fail fast until the
// cooldown elapses; a half-open probe then decides whether to close again.
type CircuitBreaker struct {
	name              string
	maxFailures       uint32
	cooldown          time.Duration
	halfOpenMaxProbes uint32

	mu                sync.Mutex
	state             State
	failures          uint32
	halfOpenProbes    uint32
	halfOpenSuccesses uint32
	lastFailure       time.Time

	logger *logrus.Logger
}

func New(name string, maxFailures uint32, cooldown time.Duration, logger *logrus.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:              name,
		maxFailures:       maxFailures,
		cooldown:          cooldown,
		halfOpenMaxProbes: 3,
		state:             StateClosed,
		logger:            logger,
	}
}

// Execute runs fn if the circuit allows it. An open circuit returns an
// *OpenError without invoking fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		return &OpenError{Name: cb.name, State: cb.State()}
	}

	if err := fn(ctx); err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldown {
			return false
		}
		cb.toHalfOpenLocked()
		return true
	case StateHalfOpen:
		if cb.halfOpenProbes >= cb.halfOpenMaxProbes {
			return false
		}
		cb.halfOpenProbes++
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.halfOpenMaxProbes {
			cb.state = StateClosed
			cb.failures = 0
			cb.logger.WithField("circuit_breaker", cb.name).Info("Circuit breaker closed after recovery")
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.maxFailures {
			cb.tripLocked()
		}
	case StateHalfOpen:
		cb.tripLocked()
	}
}

func (cb *CircuitBreaker) tripLocked() {
	cb.state = StateOpen
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"failures":        cb.failures,
	}).Warn("Circuit breaker opened")
}

func (cb *CircuitBreaker) toHalfOpenLocked() {
	cb.state = StateHalfOpen
	cb.halfOpenProbes = 1
	cb.halfOpenSuccesses = 0
	cb.logger.WithField("circuit_breaker", cb.name).Info("Circuit breaker half-open, probing")
}

// State returns the current state, promoting an expired open circuit to
// half-open first so callers observe the state a request would see.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.cooldown {
		return StateHalfOpen
	}
	return cb.state
}

// OpenError is returned when a call is rejected by an open circuit.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

// IsOpenError reports whether err is a circuit rejection rather than a
// failure of the guarded call itself.
func IsOpenError(err error) bool {
	_, ok := err.(*OpenError)
	return ok
}
