// Package circuitbreaker stops calling a failing dependency for a while.
// The dashboard cache runs every Redis round trip through one, so a Redis
// outage costs a few timeouts and then nothing until the breaker tries again.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of the breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

var (
	// ErrCircuitOpen is returned without calling fn while the circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when every half-open slot is taken.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// IsRejected reports whether err came from the breaker rather than the call.
func IsRejected(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

// Settings configures a breaker. Zero numeric fields take the defaults
// noted on them.
type Settings struct {
	// Name identifies the breaker in state change callbacks.
	Name string

	// FailureThreshold consecutive failures open the circuit. Default 5.
	FailureThreshold int

	// SuccessThreshold consecutive half-open successes close it. Default 1.
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before a trial call.
	// Default 30s.
	OpenTimeout time.Duration

	// MaxHalfOpenCalls limits concurrent half-open calls. Default 1.
	MaxHalfOpenCalls int

	// IsFailure decides which errors count against the dependency.
	// Nil counts every non-nil error.
	IsFailure func(error) bool

	// OnStateChange is called with the lock held; it must not call the breaker.
	OnStateChange func(name string, from, to State)
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 1
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.MaxHalfOpenCalls <= 0 {
		s.MaxHalfOpenCalls = 1
	}
	return s
}

// Counts are the outcomes recorded since the breaker was created or Reset.
// Streak is positive for consecutive successes and negative for
// consecutive failures, and restarts on every state change.
type Counts struct {
	Requests  int
	Successes int
	Failures  int
	Streak    int
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	inFlight int
}

// New creates a closed CircuitBreaker.
func New(s Settings) *CircuitBreaker {
	return &CircuitBreaker{settings: s.withDefaults(), now: time.Now}
}

// Execute calls fn unless the circuit rejects it, and records the outcome.
// Errors that IsFailure rejects are returned but count as successes.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.release(err)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.settings.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.settings.MaxHalfOpenCalls {
			return ErrTooManyRequests
		}
		cb.inFlight++
	}
	return nil
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.Requests++
	if cb.inFlight > 0 {
		cb.inFlight--
	}

	if err != nil && (cb.settings.IsFailure == nil || cb.settings.IsFailure(err)) {
		cb.counts.Failures++
		cb.counts.Streak = min(cb.counts.Streak, 0) - 1

		// One failed half-open call is enough to reopen.
		if cb.state == StateHalfOpen || -cb.counts.Streak >= cb.settings.FailureThreshold {
			cb.openedAt = cb.now()
			cb.transition(StateOpen)
		}
		return
	}

	cb.counts.Successes++
	cb.counts.Streak = max(cb.counts.Streak, 0) + 1
	if cb.state == StateHalfOpen && cb.counts.Streak >= cb.settings.SuccessThreshold {
		cb.transition(StateClosed)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(next State) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next
	cb.counts.Streak = 0
	cb.inFlight = 0

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, prev, next)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns the recorded outcomes.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the circuit and clears the counts without a callback.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.counts = Counts{}
	cb.inFlight = 0
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.settings.Name
}

// CacheBreaker returns the breaker for the dashboard cache. The cache is
// optional, so it opens quickly and tries again soon.
func CacheBreaker(isFailure func(error) bool, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Settings{
		Name:             "dashboard-cache",
		FailureThreshold: 3,
		OpenTimeout:      15 * time.Second,
		IsFailure:        isFailure,
		OnStateChange:    onStateChange,
	})
}
