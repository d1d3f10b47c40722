package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerSettings tunes the resilience wrapper around a Gateway.
type BreakerSettings struct {
	// CallTimeout bounds a single Charge.
	CallTimeout time.Duration
	// MaxFailures consecutive gateway errors open the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe is let through.
	OpenTimeout time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.CallTimeout <= 0 {
		s.CallTimeout = 5 * time.Second
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return s
}

// Breaker guards a Gateway with a per-call timeout and a circuit breaker.
// Declines are successful calls and never trip the circuit.
type Breaker struct {
	next    Gateway
	cb      *gobreaker.CircuitBreaker[bool]
	timeout time.Duration
}

func NewBreaker(next Gateway, settings BreakerSettings, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings = settings.withDefaults()
	maxFailures := settings.MaxFailures
	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{next: next, cb: cb, timeout: settings.CallTimeout}
}

func (b *Breaker) Charge(ctx context.Context, orderID string, amount decimal.Decimal) (bool, error) {
	approved, err := b.cb.Execute(func() (bool, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return b.next.Charge(callCtx, orderID, amount)
	})
	if err != nil {
		return false, fmt.Errorf("charge order %s: %w", orderID, err)
	}
	return approved, nil
}

// State reports the current circuit state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
