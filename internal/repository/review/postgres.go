package review

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
	return &postgresRepo{pool: pool, logger: logger.Named("review_repo")}
}

const reviewColumns = `id::text, user_id::text, product_id::text, rating, description, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in domain.Review) (*domain.Review, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO reviews (user_id, product_id, rating, description)
VALUES ($1, $2, $3, $4)
RETURNING `+reviewColumns, in.UserID, in.ProductID, in.Rating, in.Description)
	out, err := scanReview(row)
	if err != nil {
		err = translate(err)
		if !errors.Is(err, domain.ErrAlreadyExists) && !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("create review", zap.String("product_id", in.ProductID), zap.Error(err))
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 ORDER BY created_at ASC, id`, productID)
	if err != nil {
		r.logger.Error("list reviews", zap.String("product_id", productID), zap.Error(err))
		return nil, err
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Review, error) {
		return scanReview(row)
	})
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &rv.Description, &rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
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
