package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned by Execute without calling fn while the
// breaker is open, or while its single half-open probe is in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a CircuitBreaker. Zero values fall back
// to DefaultCircuitBreakerConfig.
type CircuitBreakerConfig struct {
	Name          string
	MaxFailures   int           // consecutive failures that open the circuit
	Timeout       time.Duration // how long it stays open before one probe
	OnStateChange func(name string, from, to State)
}

func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{Name: name, MaxFailures: 5, Timeout: 10 * time.Second}
}

// CircuitBreaker fails fast once a dependency has failed MaxFailures times
// in a row. One breaker is shared by every caller of a dependency so that
// one caller's failures shield the others. After Timeout a single probe
// call is admitted; its outcome closes or reopens the circuit.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	probing  bool
	openedAt time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute calls fn if the breaker admits it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	ok := cb.admitLocked()
	cb.mu.Unlock()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.recordLocked(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Failures is the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveLocked(StateClosed)
}

func (cb *CircuitBreaker) admitLocked() bool {
	switch cb.stateLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if !cb.probing {
			cb.probing = true
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) recordLocked(err error) {
	half := cb.stateLocked() == StateHalfOpen
	cb.probing = false
	if err == nil {
		cb.failures = 0
		if half {
			cb.moveLocked(StateClosed)
		}
		return
	}
	cb.failures++
	if half || cb.failures >= cb.cfg.MaxFailures {
		cb.moveLocked(StateOpen)
	}
}

// stateLocked turns an expired open state into half-open on read.
func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Timeout {
		cb.moveLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.probing = false
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
