package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("product_repo")}
}

const productColumns = `id::text, title, description, image_url, category_id::text, created_at, updated_at`

const variantColumns = `id::text, product_id::text, color, size, price, created_at, updated_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		r.logger.Error("list products", zap.Error(err))
		return nil, err
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		r.logger.Error("list products rows", zap.Error(err))
		return nil, err
	}

	variants, err := r.queryVariants(ctx, `SELECT `+variantColumns+` FROM variants ORDER BY created_at ASC, id`)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[string][]domain.Variant, len(products))
	for _, v := range variants {
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	for i := range products {
		products[i].Variants = byProduct[products[i].ID]
		if products[i].Variants == nil {
			products[i].Variants = []domain.Variant{}
		}
	}
	r.logger.Debug("list products", zap.Int("count", len(products)))
	return products, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("get product not found", zap.String("product_id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get product", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	p.Variants, err = r.ListVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out, err := scanProduct(tx.QueryRow(ctx, `
INSERT INTO products (title, description, image_url, category_id)
VALUES ($1, $2, $3, $4)
RETURNING `+productColumns,
		p.Title, p.Description, p.ImageURL, p.CategoryID,
	))
	if err != nil {
		return nil, translate(err)
	}

	out.Variants = make([]domain.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		saved, err := scanVariant(tx.QueryRow(ctx, `
INSERT INTO variants (product_id, color, size, price)
VALUES ($1, $2, $3, $4)
RETURNING `+variantColumns,
			out.ID, string(v.Color), string(v.Size), v.Price,
		))
		if err != nil {
			return nil, translate(err)
		}
		out.Variants = append(out.Variants, saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("created product", zap.String("product_id", out.ID), zap.Int("variants", len(out.Variants)))
	return &out, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, in Update) (*domain.Product, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE products
SET title = COALESCE($2, title),
    description = COALESCE($3, description),
    updated_at = now()
WHERE id = $1
`, id, in.Title, in.Description)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) SetCategory(ctx context.Context, id string, categoryID *string) (*domain.Product, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE products SET category_id = $2, updated_at = now() WHERE id = $1
`, id, categoryID)
	if err != nil {
		return nil, translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) SetImage(ctx context.Context, id, imageURL string) (*domain.Product, string, error) {
	var previous string
	err := r.pool.QueryRow(ctx, `
UPDATE products p
SET image_url = $2, updated_at = now()
FROM (SELECT id, image_url FROM products WHERE id = $1 FOR UPDATE) old
WHERE p.id = old.id
RETURNING old.image_url
`, id, imageURL).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		r.logger.Error("set product image", zap.String("product_id", id), zap.Error(err))
		return nil, "", err
	}
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return p, previous, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("deleted product", zap.String("product_id", id))
	return nil
}

func (r *postgresRepo) ListVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	return r.queryVariants(ctx, `SELECT `+variantColumns+` FROM variants WHERE product_id = $1 ORDER BY created_at ASC, id`, productID)
}

func (r *postgresRepo) GetVariant(ctx context.Context, id string) (*domain.Variant, error) {
	v, err := scanVariant(r.pool.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("get variant not found", zap.String("variant_id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get variant", zap.String("variant_id", id), zap.Error(err))
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepo) UpdateVariant(ctx context.Context, id string, in VariantUpdate) (*domain.Variant, error) {
	var color, size *string
	if in.Color != nil {
		c := string(*in.Color)
		color = &c
	}
	if in.Size != nil {
		s := string(*in.Size)
		size = &s
	}
	v, err := scanVariant(r.pool.QueryRow(ctx, `
UPDATE variants
SET color = COALESCE($2, color),
    size = COALESCE($3, size),
    price = COALESCE($4, price),
    updated_at = now()
WHERE id = $1
RETURNING `+variantColumns,
		id, color, size, in.Price,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	r.logger.Info("updated variant", zap.String("variant_id", id), zap.Stringer("price", v.Price))
	return &v, nil
}

func (r *postgresRepo) queryVariants(ctx context.Context, q string, args ...any) ([]domain.Variant, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("query variants", zap.Error(err))
		return nil, err
	}
	variants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Variant, error) {
		return scanVariant(row)
	})
	if err != nil {
		return nil, err
	}
	if variants == nil {
		variants = []domain.Variant{}
	}
	return variants, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanVariant(row pgx.Row) (domain.Variant, error) {
	var (
		v           domain.Variant
		color, size string
	)
	err := row.Scan(&v.ID, &v.ProductID, &color, &size, &v.Price, &v.CreatedAt, &v.UpdatedAt)
	v.Color = domain.Color(color)
	v.Size = domain.Size(size)
	return v, err
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrAlreadyExists
		case "23503":
			return domain.ErrNotFound
		case "23514":
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return err
}
