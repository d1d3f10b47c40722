package review

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Create stores r. A second review of the same product by the same user
	// is domain.ErrAlreadyExists; an unknown user or product is domain.ErrNotFound.
	Create(ctx context.Context, r domain.Review) (*domain.Review, error)
	// ListByProduct returns the product's reviews oldest first, or
	// domain.ErrNotFound when the product does not exist.
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
}
