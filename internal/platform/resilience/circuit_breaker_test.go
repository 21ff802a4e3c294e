package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct {
	from, to CircuitState
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time, *[]transition) {
	now := time.Date(2026, 10, 24, 8, 0, 0, 0, time.UTC)
	var seen []transition
	b := NewCircuitBreaker("payment_gateway", cfg, func(name string, from, to CircuitState) {
		seen = append(seen, transition{from: from, to: to})
	})
	b.now = func() time.Time { return now }
	return b, &now, &seen
}

func TestCircuitBreaker_Transitions(t *testing.T) {
	b, now, seen := newTestBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: 5 * time.Second, HalfOpenMaxReq: 1})
	errDown := errors.New("gateway down")
	fail := func() error { return errDown }
	ok := func() error { return nil }

	require.ErrorIs(t, b.Execute(fail, nil), errDown)
	assert.Equal(t, CircuitStateClosed, b.State())

	require.ErrorIs(t, b.Execute(fail, nil), errDown)
	assert.Equal(t, CircuitStateOpen, b.State())
	assert.ErrorIs(t, b.Execute(ok, nil), ErrCircuitOpen)

	*now = now.Add(6 * time.Second)
	assert.Equal(t, CircuitStateHalfOpen, b.State())
	require.NoError(t, b.Execute(ok, nil))
	assert.Equal(t, CircuitStateClosed, b.State())

	assert.Equal(t, []transition{
		{CircuitStateClosed, CircuitStateOpen},
		{CircuitStateOpen, CircuitStateHalfOpen},
		{CircuitStateHalfOpen, CircuitStateClosed},
	}, *seen)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	b, now, _ := newTestBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Second, HalfOpenMaxReq: 1})
	errDown := errors.New("gateway down")

	require.ErrorIs(t, b.Execute(func() error { return errDown }, nil), errDown)
	*now = now.Add(2 * time.Second)
	require.ErrorIs(t, b.Execute(func() error { return errDown }, nil), errDown)

	assert.Equal(t, CircuitStateOpen, b.State())
	assert.ErrorIs(t, b.Execute(func() error { return nil }, nil), ErrCircuitOpen)
}

func TestCircuitBreaker_ExecuteIgnoresCallerErrors(t *testing.T) {
	b, _, _ := newTestBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})
	errBadRequest := errors.New("bad request")
	errUpstream := errors.New("upstream down")
	isUpstream := func(err error) bool { return errors.Is(err, errUpstream) }

	assert.ErrorIs(t, b.Execute(func() error { return errBadRequest }, isUpstream), errBadRequest)
	assert.Equal(t, CircuitStateClosed, b.State(), "caller errors never open the breaker")

	assert.ErrorIs(t, b.Execute(func() error { return errUpstream }, isUpstream), errUpstream)
	assert.ErrorIs(t, b.Execute(func() error { return nil }, isUpstream), ErrCircuitOpen)
}

func TestCircuitBreaker_DisabledPassesThrough(t *testing.T) {
	b, _, seen := newTestBreaker(CircuitBreakerConfig{Enabled: false, FailureThreshold: 1})
	errDown := errors.New("gateway down")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(func() error { return errDown }, nil), errDown)
	}
	assert.Equal(t, CircuitStateClosed, b.State())
	assert.Empty(t, *seen)
}

func TestCircuitBreakerConfig_WithDefaults(t *testing.T) {
	got := CircuitBreakerConfig{Enabled: true, FailureThreshold: 0, OpenTimeout: -time.Second}.withDefaults()
	assert.True(t, got.Enabled)
	assert.Equal(t, 5, got.FailureThreshold)
	assert.Equal(t, 15*time.Second, got.OpenTimeout)
	assert.Equal(t, 2, got.HalfOpenMaxReq)
}
