package product

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Update carries the product fields an admin may change. Nil fields are left untouched.
type Update struct {
	Title       *string
	Description *string
}

// VariantUpdate carries the variant fields an admin may change.
type VariantUpdate struct {
	Color *domain.Color
	Size  *domain.Size
	Price *decimal.Decimal
}

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, in Update) (*domain.Product, error)
	SetCategory(ctx context.Context, id string, categoryID *string) (*domain.Product, error)
	// SetImage stores imageURL on the product and returns the URL it replaced.
	SetImage(ctx context.Context, id, imageURL string) (*domain.Product, string, error)
	Delete(ctx context.Context, id string) error
	ListVariants(ctx context.Context, productID string) ([]domain.Variant, error)
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
	UpdateVariant(ctx context.Context, id string, in VariantUpdate) (*domain.Variant, error)
}
