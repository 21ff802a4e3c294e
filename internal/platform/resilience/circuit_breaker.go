package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc observes breaker transitions. It runs with the breaker
// lock held and must not call back into the breaker.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker guards calls to an outbound dependency: the payment
// gateway or the account service. After FailureThreshold consecutive
// failures it rejects calls for OpenTimeout, then lets HalfOpenMaxReq
// probes through before closing again.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	onChange StateChangeFunc
	now      func() time.Time

	mu         sync.Mutex
	state      CircuitState
	failures   int
	openedAt   time.Time
	probes     int
	probesDone int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreaker {
	return &CircuitBreaker{
		name:     name,
		cfg:      cfg.withDefaults(),
		onChange: onChange,
		now:      time.Now,
		state:    CircuitStateClosed,
	}
}

// Execute runs fn under the breaker. Errors for which countsAsFailure
// returns false, e.g. a 4xx from the dependency, are returned as-is and
// count as successes. A nil countsAsFailure counts every error.
func (b *CircuitBreaker) Execute(fn func() error, countsAsFailure func(error) bool) error {
	if !b.cfg.Enabled {
		return fn()
	}
	if err := b.acquire(); err != nil {
		return err
	}

	err := fn()
	b.record(err != nil && (countsAsFailure == nil || countsAsFailure(err)))
	return err
}

// State reports the current state. An open breaker whose timeout has
// elapsed reports half-open.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		b.transition(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		if !failed {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if failed {
			b.transition(CircuitStateOpen)
			return
		}
		b.probesDone++
		if b.probesDone >= b.cfg.HalfOpenMaxReq {
			b.transition(CircuitStateClosed)
		}
	case CircuitStateOpen:
		// a call admitted before the breaker opened
		if failed {
			b.openedAt = b.now()
		}
	}
}

func (b *CircuitBreaker) transition(to CircuitState) {
	from := b.state
	b.state = to
	b.probes, b.probesDone = 0, 0
	switch to {
	case CircuitStateOpen:
		b.openedAt = b.now()
	case CircuitStateClosed:
		b.failures = 0
		b.openedAt = time.Time{}
	}
	if b.onChange != nil && from != to {
		b.onChange(b.name, from, to)
	}
}
