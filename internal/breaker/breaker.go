// Package breaker guards the persistence core against a struggling
// database. Only system failures (connectivity, timeouts, pool exhaustion)
// count toward opening the circuit; data errors are the payload's fault and
// pass through without moving the failure ratio. When the circuit is open
// callers get domain.ErrCallNotPermitted and are expected to pause intake
// and retry the same work later, not drop it.
package breaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// Settings are the tunables for one Guard.
type Settings struct {
	Name         string
	FailureRate  float64
	OpenDuration time.Duration
	HalfOpenMax  int
	MinRequests  int
}

// Guard wraps a circuit breaker around persistence calls.
type Guard struct {
	cb *gobreaker.CircuitBreaker
}

// New builds a Guard. isDataError reports whether an error was caused by the
// payload rather than the system; such errors never trip the circuit.
func New(st Settings, isDataError func(error) bool, log *zap.Logger) *Guard {
	return &Guard{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        st.Name,
			MaxRequests: uint32(st.HalfOpenMax),
			// Counts clear on this cadence while closed, bounding how much
			// history the failure ratio is computed over.
			Interval: st.OpenDuration,
			Timeout:  st.OpenDuration,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < uint32(st.MinRequests) {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= st.FailureRate
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isDataError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("persistence circuit state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

// Execute runs fn under the circuit. An open circuit (or an exhausted
// half-open probe budget) returns domain.ErrCallNotPermitted without
// invoking fn; otherwise fn's own error is returned unchanged.
func (g *Guard) Execute(fn func() error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.ErrCallNotPermitted
	}
	return err
}

// State reports the circuit state for the admin snapshot.
func (g *Guard) State() string {
	return g.cb.State().String()
}
