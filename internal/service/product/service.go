package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

type VariantInput struct {
	Color domain.Color    `json:"color"`
	Size  domain.Size     `json:"size"`
	Price decimal.Decimal `json:"price"`
}

type CreateInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ImageURL    string         `json:"imageUrl"`
	CategoryID  *string        `json:"categoryId"`
	Variants    []VariantInput `json:"variants"`
}

type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type VariantUpdateInput struct {
	Color *domain.Color    `json:"color"`
	Size  *domain.Size     `json:"size"`
	Price *decimal.Decimal `json:"price"`
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title required")
	}
	p := domain.Product{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		CategoryID:  in.CategoryID,
	}
	for i, v := range in.Variants {
		if v.Color == "" {
			v.Color = domain.ColorBlack
		}
		if v.Size == "" {
			v.Size = domain.SizeM
		}
		if err := validateVariant(v.Color, v.Size, v.Price); err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}
		p.Variants = append(p.Variants, domain.Variant{Color: v.Color, Size: v.Size, Price: v.Price})
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		in.Title = &title
	}
	return s.repo.Update(ctx, id, productrepo.Update{Title: in.Title, Description: in.Description})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SetCategory assigns the product to categoryID, or detaches it when categoryID is nil.
func (s *Service) SetCategory(ctx context.Context, id string, categoryID *string) (*domain.Product, error) {
	return s.repo.SetCategory(ctx, id, categoryID)
}

// SetImage points the product at a stored image and returns the URL it replaced,
// so the caller can discard the old file.
func (s *Service) SetImage(ctx context.Context, id, imageURL string) (*domain.Product, string, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, "", invalid("image url required")
	}
	return s.repo.SetImage(ctx, id, imageURL)
}

func (s *Service) ListVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListVariants(ctx, productID)
}

// GetVariant resolves a variant for the cart. Unknown ids are domain.ErrNotFound.
func (s *Service) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	return s.repo.GetVariant(ctx, id)
}

// UpdateVariant changes a variant. Carts keep the price captured when an item was added.
func (s *Service) UpdateVariant(ctx context.Context, id string, in VariantUpdateInput) (*domain.Variant, error) {
	if in.Color != nil && !in.Color.Valid() {
		return nil, invalid("unknown color " + string(*in.Color))
	}
	if in.Size != nil && !in.Size.Valid() {
		return nil, invalid("unknown size " + string(*in.Size))
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}
	return s.repo.UpdateVariant(ctx, id, productrepo.VariantUpdate{Color: in.Color, Size: in.Size, Price: in.Price})
}

func validateVariant(c domain.Color, sz domain.Size, price decimal.Decimal) error {
	if !c.Valid() {
		return invalid("unknown color " + string(c))
	}
	if !sz.Valid() {
		return invalid("unknown size " + string(sz))
	}
	if price.IsNegative() {
		return invalid("price must not be negative")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}
