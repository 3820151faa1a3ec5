package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while a breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
	// OnStateChange is called with the breaker lock held
	OnStateChange func(name string, from, to CircuitBreakerState)
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breakers
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker stops calling a failing dependency for a cool-down period
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	successes   int
	nextAttempt time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit and clears its counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Before(cb.nextAttempt) {
			return false
		}
		cb.setState(StateHalfOpen)
	}
	return true
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0
	if cb.state != StateHalfOpen {
		return
	}
	cb.successes++
	if cb.successes >= cb.config.SuccessThreshold {
		cb.setState(StateClosed)
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.successes = 0
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(next CircuitBreakerState) {
	prev := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	if next == StateOpen {
		cb.nextAttempt = cb.now().Add(cb.config.Timeout)
	}
	if prev != next && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, prev, next)
	}
}

// CircuitBreakerChecker wraps a checker so a dead dependency is not probed on every request
type CircuitBreakerChecker struct {
	checker Checker
	breaker *CircuitBreaker
}

// WithCircuitBreaker wraps checker. State changes are logged on logger.
func WithCircuitBreaker(name string, checker Checker, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerChecker {
	if config.OnStateChange == nil {
		config.OnStateChange = func(name string, from, to CircuitBreakerState) {
			logger.Warn("Health check circuit changed state",
				zap.String("check", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &CircuitBreakerChecker{
		checker: checker,
		breaker: NewCircuitBreaker(name, config),
	}
}

// Breaker exposes the underlying circuit breaker
func (c *CircuitBreakerChecker) Breaker() *CircuitBreaker {
	return c.breaker
}

// Check runs the wrapped checker through the breaker
func (c *CircuitBreakerChecker) Check(ctx context.Context) Check {
	var result Check
	err := c.breaker.Execute(func() error {
		result = c.checker.Check(ctx)
		if result.Status == StatusUnhealthy {
			return fmt.Errorf("health check failed: %s", result.Message)
		}
		return nil
	})

	if errors.Is(err, ErrCircuitOpen) {
		result = Check{
			Status:      StatusUnhealthy,
			Message:     err.Error(),
			LastChecked: c.breaker.now(),
		}
	}
	result.Metadata = withBreakerState(result.Metadata, c.breaker.State())
	return result
}

func withBreakerState(metadata interface{}, state CircuitBreakerState) interface{} {
	switch m := metadata.(type) {
	case nil:
		return map[string]interface{}{"circuit_breaker_state": state.String()}
	case map[string]interface{}:
		m["circuit_breaker_state"] = state.String()
		return m
	default:
		return metadata
	}
}
