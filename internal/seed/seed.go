package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

// AdminMobile is the verified administrator created by Apply.
const AdminMobile = "09120000000"

type variantSeed struct {
	Color domain.Color
	Size  domain.Size
	Price string
}

type productSeed struct {
	Title       string
	Description string
	Category    string
	Variants    []variantSeed
}

var (
	rootCategory  = "Clothing"
	subcategories = []string{"T-Shirts", "Hoodies"}

	products = []productSeed{
		{
			Title:       "Demo T-Shirt",
			Description: "Soft cotton tee for demo purposes",
			Category:    "T-Shirts",
			Variants: []variantSeed{
				{Color: domain.ColorBlack, Size: domain.SizeM, Price: "19.99"},
				{Color: domain.ColorWhite, Size: domain.SizeL, Price: "21.50"},
			},
		},
		{
			Title:       "Demo Hoodie",
			Description: "Fleece hoodie with demo logo",
			Category:    "Hoodies",
			Variants: []variantSeed{
				{Color: domain.ColorRed, Size: domain.SizeS, Price: "45.00"},
				{Color: domain.ColorBlack, Size: domain.SizeL, Price: "49.00"},
			},
		},
	}
)

// Apply inserts basic seed data for manual testing. Running it again leaves
// the data unchanged.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if err := ensureAdmin(ctx, tx, AdminMobile); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}

		rootID, err := ensureCategory(ctx, tx, rootCategory, nil)
		if err != nil {
			return fmt.Errorf("ensure category %s: %w", rootCategory, err)
		}
		categoryIDs := make(map[string]string, len(subcategories))
		for _, name := range subcategories {
			id, err := ensureCategory(ctx, tx, name, &rootID)
			if err != nil {
				return fmt.Errorf("ensure category %s: %w", name, err)
			}
			categoryIDs[name] = id
		}

		for _, p := range products {
			categoryID := categoryIDs[p.Category]
			productID, err := ensureProduct(ctx, tx, p, categoryID)
			if err != nil {
				return fmt.Errorf("ensure product %s: %w", p.Title, err)
			}
			for _, v := range p.Variants {
				if err := ensureVariant(ctx, tx, productID, v); err != nil {
					return fmt.Errorf("ensure variant %s/%s/%s: %w", p.Title, v.Color, v.Size, err)
				}
			}
			logger.Debug("seeded product", zap.String("title", p.Title), zap.String("product_id", productID))
		}
		logger.Info("seed applied", zap.Int("products", len(products)), zap.String("admin_mobile", AdminMobile))
		return nil
	})
}

func ensureAdmin(ctx context.Context, tx pgx.Tx, mobile string) error {
	const q = `
INSERT INTO users (mobile_number, is_admin, is_verified)
VALUES ($1, TRUE, TRUE)
ON CONFLICT (mobile_number) DO UPDATE
SET is_admin = TRUE, is_verified = TRUE
`
	_, err := tx.Exec(ctx, q, mobile)
	return err
}

func ensureCategory(ctx context.Context, tx pgx.Tx, name string, parentID *string) (string, error) {
	const q = `
INSERT INTO categories (name, parent_id)
VALUES ($1, $2)
ON CONFLICT (COALESCE(parent_id, '00000000-0000-0000-0000-000000000000'::uuid), name)
DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	var id string
	if err := tx.QueryRow(ctx, q, name, parentID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func ensureProduct(ctx context.Context, tx pgx.Tx, p productSeed, categoryID string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `SELECT id::text FROM products WHERE title = $1 LIMIT 1`, p.Title).Scan(&id)
	switch {
	case err == nil:
		_, err = tx.Exec(ctx, `
UPDATE products SET description = $2, category_id = NULLIF($3, '')::uuid, updated_at = now()
WHERE id = $1
`, id, p.Description, categoryID)
		return id, err
	case !errors.Is(err, pgx.ErrNoRows):
		return "", err
	}

	err = tx.QueryRow(ctx, `
INSERT INTO products (title, description, category_id)
VALUES ($1, $2, NULLIF($3, '')::uuid)
RETURNING id::text
`, p.Title, p.Description, categoryID).Scan(&id)
	return id, err
}

func ensureVariant(ctx context.Context, tx pgx.Tx, productID string, v variantSeed) error {
	const q = `
INSERT INTO variants (product_id, color, size, price)
SELECT $1, $2, $3, $4::numeric
WHERE NOT EXISTS (
    SELECT 1 FROM variants WHERE product_id = $1 AND color = $2 AND size = $3
)
`
	_, err := tx.Exec(ctx, q, productID, string(v.Color), string(v.Size), v.Price)
	return err
}
