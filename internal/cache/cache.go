package cache

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// CartCache holds read copies of open carts keyed by user.
//
// Readers take Generation before loading from the database and pass it to
// Set; an Invalidate in between bumps the generation and the stale Set is
// dropped.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Order, error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, cart *domain.Order, generation int64) error
	Invalidate(ctx context.Context, userID string) error
}

// Nop never stores anything; every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.Order, error)      { return nil, ErrCacheMiss }
func (Nop) Generation(context.Context, string) (int64, error)       { return 0, nil }
func (Nop) Set(context.Context, string, *domain.Order, int64) error { return nil }
func (Nop) Invalidate(context.Context, string) error                { return nil }
