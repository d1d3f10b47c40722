package payment

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// Gateway settles an order total. A false result with a nil error is a
// declined payment; a non-nil error means the outcome is unknown.
type Gateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal) (bool, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, orderID string, amount decimal.Decimal) (bool, error)

func (f GatewayFunc) Charge(ctx context.Context, orderID string, amount decimal.Decimal) (bool, error) {
	return f(ctx, orderID, amount)
}

// Stub approves or declines every charge. It stands in for a real bank.
type Stub struct {
	approve atomic.Bool
}

func NewStub(approve bool) *Stub {
	s := &Stub{}
	s.approve.Store(approve)
	return s
}

// SetApprove flips the decision for subsequent charges.
func (s *Stub) SetApprove(approve bool) {
	s.approve.Store(approve)
}

func (s *Stub) Charge(ctx context.Context, _ string, _ decimal.Decimal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.approve.Load(), nil
}
