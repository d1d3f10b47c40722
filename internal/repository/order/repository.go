package order

import (
	"context"

	"storefront/internal/domain"
)

// Store loads and persists order aggregates. Save writes the header and the
// full item collection atomically and assigns ids on first save.
type Store interface {
	FindOpenByUser(ctx context.Context, userID string) (*domain.Order, error)
	FindPendingByUser(ctx context.Context, userID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	Save(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id string) error
}

// Repository is a Store that can also run a unit of work serialized per user.
// fn receives a Store bound to the same transaction; returning an error rolls
// everything back.
type Repository interface {
	Store
	WithinUserLock(ctx context.Context, userID string, fn func(ctx context.Context, store Store) error) error
}
