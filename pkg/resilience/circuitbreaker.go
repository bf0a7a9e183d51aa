package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"lovink/backend/pkg/logger"
)

// ErrOpen is returned without calling the protected function while the
// breaker is open
var ErrOpen = errors.New("circuit open")

// State is the circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config holds configuration for a circuit breaker
type Config struct {
	Name string
	// FailureThreshold consecutive failures open the circuit
	FailureThreshold uint
	// SuccessThreshold half-open successes close it again
	SuccessThreshold uint
	// RetryTimeout is how long the circuit stays open
	RetryTimeout time.Duration
	// IsFailure decides which errors count; nil counts every error except
	// context.Canceled
	IsFailure func(error) bool
	// OnStateChange observes transitions
	OnStateChange func(name string, from, to State)
	Now           func() time.Time
}

// DefaultConfig returns the default breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// Metrics is a snapshot of breaker counters
type Metrics struct {
	Name            string    `json:"name"`
	State           State     `json:"state"`
	TotalRequests   uint64    `json:"total_requests"`
	TotalFailures   uint64    `json:"total_failures"`
	TotalSuccesses  uint64    `json:"total_successes"`
	Rejected        uint64    `json:"rejected"`
	OpenCount       uint64    `json:"open_count"`
	LastFailureTime time.Time `json:"last_failure_time"`
}

// CircuitBreaker stops calling a failing dependency for a while
type CircuitBreaker struct {
	cfg Config
	log *logger.Logger

	mu           sync.Mutex
	state        State
	failureCount uint
	successCount uint
	inFlight     uint
	nextAttempt  time.Time
	metrics      Metrics
}

// New creates a closed circuit breaker
func New(cfg Config, log *logger.Logger) *CircuitBreaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{
		cfg:     cfg,
		log:     log,
		state:   StateClosed,
		metrics: Metrics{Name: cfg.Name},
	}
}

// Execute runs fn through the breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		cb.log.Debug("circuit breaker rejected call", "name", cb.cfg.Name)
		return ErrOpen
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && !cb.cfg.Now().Before(cb.nextAttempt) {
		cb.transition(StateHalfOpen)
	}
	switch cb.state {
	case StateClosed:
	case StateHalfOpen:
		// only as many probes as needed to close
		if cb.successCount+cb.inFlight >= cb.cfg.SuccessThreshold {
			cb.metrics.Rejected++
			return false
		}
	default:
		cb.metrics.Rejected++
		return false
	}
	cb.inFlight++
	cb.metrics.TotalRequests++
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.inFlight--

	if err != nil && cb.cfg.IsFailure(err) {
		cb.metrics.TotalFailures++
		cb.metrics.LastFailureTime = cb.cfg.Now()
		switch cb.state {
		case StateClosed:
			cb.failureCount++
			if cb.failureCount >= cb.cfg.FailureThreshold {
				cb.transition(StateOpen)
			}
		case StateHalfOpen:
			cb.transition(StateOpen)
		}
		return
	}

	cb.metrics.TotalSuccesses++
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.transition(StateClosed)
		}
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.successCount = 0
	switch to {
	case StateOpen:
		cb.metrics.OpenCount++
		cb.nextAttempt = cb.cfg.Now().Add(cb.cfg.RetryTimeout)
		cb.log.Warn("circuit breaker opened",
			"name", cb.cfg.Name,
			"failures", cb.failureCount,
			"retry_at", cb.nextAttempt.Format(time.RFC3339),
		)
	case StateClosed:
		cb.failureCount = 0
		cb.log.Info("circuit breaker closed", "name", cb.cfg.Name)
	case StateHalfOpen:
		cb.log.Info("circuit breaker half-open", "name", cb.cfg.Name)
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Metrics returns a snapshot of the counters
func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	m := cb.metrics
	m.State = cb.state
	return m
}
