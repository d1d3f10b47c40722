package favorite

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Add(ctx context.Context, userID, productID string) error {
	const q = `
INSERT INTO favorites (user_id, product_id)
VALUES ($1, $2)
ON CONFLICT (user_id, product_id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, q, userID, productID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Product, error) {
	const q = `
SELECT p.id::text, p.title, p.description, p.image_url, p.category_id::text, p.created_at, p.updated_at
FROM favorites f
JOIN products p ON p.id = f.product_id
WHERE f.user_id = $1
ORDER BY f.created_at DESC, p.id
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		var p domain.Product
		err := row.Scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
		p.Variants = []domain.Variant{}
		return p, err
	})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []domain.Product{}, nil
	}

	index := make(map[string]int, len(products))
	ids := make([]string, len(products))
	for i, p := range products {
		index[p.ID] = i
		ids[i] = p.ID
	}

	const variantsQ = `
SELECT id::text, product_id::text, color, size, price, created_at, updated_at
FROM variants
WHERE product_id = ANY($1::uuid[])
ORDER BY created_at ASC, id
`
	vrows, err := r.pool.Query(ctx, variantsQ, ids)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var (
			v           domain.Variant
			color, size string
		)
		if err := vrows.Scan(&v.ID, &v.ProductID, &color, &size, &v.Price, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Color = domain.Color(color)
		v.Size = domain.Size(size)
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
