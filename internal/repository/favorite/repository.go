package favorite

import (
	"context"

	"storefront/internal/domain"
)

// Repository keeps the set of products each user marked as favorite.
type Repository interface {
	// Add is idempotent. An unknown user or product is domain.ErrNotFound.
	Add(ctx context.Context, userID, productID string) error
	// Remove returns domain.ErrNotFound when the product was not a favorite.
	Remove(ctx context.Context, userID, productID string) error
	// ListByUser returns favorites newest first, each with its variants.
	ListByUser(ctx context.Context, userID string) ([]domain.Product, error)
}
