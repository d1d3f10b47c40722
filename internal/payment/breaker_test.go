package payment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub(t *testing.T) {
	s := NewStub(true)
	ok, err := s.Charge(context.Background(), "o1", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, ok)

	s.SetApprove(false)
	ok, err = s.Charge(context.Background(), "o1", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Charge(ctx, "o1", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreaker_DeclineDoesNotTrip(t *testing.T) {
	b := NewBreaker(NewStub(false), BreakerSettings{MaxFailures: 2}, nil)
	for range 5 {
		ok, err := b.Charge(context.Background(), "o1", decimal.NewFromInt(1))
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_OpensAfterConsecutiveErrors(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("bank unavailable")
	gw := GatewayFunc(func(context.Context, string, decimal.Decimal) (bool, error) {
		calls.Add(1)
		return false, boom
	})
	b := NewBreaker(gw, BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute}, nil)

	for range 3 {
		_, err := b.Charge(context.Background(), "o1", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Charge(context.Background(), "o1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, 3, calls.Load(), "open circuit must not reach the gateway")
}

func TestBreaker_AppliesCallTimeout(t *testing.T) {
	gw := GatewayFunc(func(ctx context.Context, _ string, _ decimal.Decimal) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	b := NewBreaker(gw, BreakerSettings{CallTimeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	_, err := b.Charge(context.Background(), "o1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
