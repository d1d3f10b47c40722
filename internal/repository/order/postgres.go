package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type postgresRepo struct {
	db     querier
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{db: pool, logger: logger.Named("order_repo")}
}

// Header and items come back in one statement so a read outside a
// transaction still observes a single snapshot of the aggregate.
const selectOrders = `
SELECT o.id::text, o.user_id::text, o.status, o.total_price, o.created_at, o.updated_at,
       i.id::text, COALESCE(i.variant_id::text, ''), i.product_id::text, i.quantity, i.price, i.created_at, i.updated_at
FROM orders o
LEFT JOIN order_items i ON i.order_id = o.id
`

func (r *postgresRepo) WithinUserLock(ctx context.Context, userID string, fn func(ctx context.Context, store Store) error) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
			return fmt.Errorf("lock user %s: %w", userID, err)
		}
		return fn(ctx, &postgresRepo{db: tx, logger: r.logger})
	})
}

func (r *postgresRepo) FindOpenByUser(ctx context.Context, userID string) (*domain.Order, error) {
	return r.fetchOne(ctx, selectOrders+`
WHERE o.id = (
	SELECT id FROM orders
	WHERE user_id = $1 AND status = 'shopping-cart'
	LIMIT 1
)
ORDER BY i.seq ASC
`, userID)
}

func (r *postgresRepo) FindPendingByUser(ctx context.Context, userID string) (*domain.Order, error) {
	return r.fetchOne(ctx, selectOrders+`
WHERE o.id = (
	SELECT id FROM orders
	WHERE user_id = $1 AND status IN ('shopping-cart', 'payment')
	ORDER BY (status = 'shopping-cart') DESC, updated_at DESC
	LIMIT 1
)
ORDER BY i.seq ASC
`, userID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.fetchOne(ctx, selectOrders+`
WHERE o.id = $1
ORDER BY i.seq ASC
`, id)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := r.fetch(ctx, selectOrders+`
WHERE o.user_id = $1
ORDER BY o.created_at DESC, o.id, i.seq ASC
`, userID)
	if err != nil {
		r.logger.Error("list orders", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("list orders", zap.String("user_id", userID), zap.Int("count", len(orders)))
	return orders, nil
}

func (r *postgresRepo) Save(ctx context.Context, o *domain.Order) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := saveHeader(ctx, tx, o); err != nil {
			return err
		}

		keep := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			if item.ID != "" {
				keep = append(keep, item.ID)
			}
		}
		if _, err := tx.Exec(ctx, `
DELETE FROM order_items
WHERE order_id = $1 AND NOT (id::text = ANY($2))
`, o.ID, keep); err != nil {
			return fmt.Errorf("prune order items: %w", err)
		}

		for i := range o.Items {
			if err := saveItem(ctx, tx, o.ID, &o.Items[i]); err != nil {
				return err
			}
		}
		r.logger.Debug("saved order",
			zap.String("order_id", o.ID),
			zap.String("status", string(o.Status)),
			zap.Int("items", len(o.Items)),
			zap.Stringer("total", o.TotalPrice),
		)
		return nil
	})
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Debug("deleted order", zap.String("order_id", id))
	return nil
}

func saveHeader(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	if o.ID == "" {
		err := tx.QueryRow(ctx, `
INSERT INTO orders (user_id, status, total_price)
VALUES ($1, $2, $3)
RETURNING id::text, created_at, updated_at
`, o.UserID, string(o.Status), o.TotalPrice).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", translate(err))
		}
		return nil
	}

	err := tx.QueryRow(ctx, `
UPDATE orders
SET status = $2, total_price = $3, updated_at = now()
WHERE id = $1
RETURNING created_at, updated_at
`, o.ID, string(o.Status), o.TotalPrice).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update order %s: %w", o.ID, translate(err))
	}
	return nil
}

func saveItem(ctx context.Context, tx pgx.Tx, orderID string, item *domain.OrderItem) error {
	item.OrderID = orderID
	if item.ID == "" {
		err := tx.QueryRow(ctx, `
INSERT INTO order_items (order_id, variant_id, product_id, quantity, price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text, created_at, updated_at
`, orderID, item.VariantID, item.ProductID, item.Quantity, item.Price).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order item variant=%s: %w", item.VariantID, translate(err))
		}
		return nil
	}

	err := tx.QueryRow(ctx, `
UPDATE order_items
SET quantity = $3, updated_at = now()
WHERE id = $1 AND order_id = $2
RETURNING created_at, updated_at
`, item.ID, orderID, item.Quantity).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update order item %s: %w", item.ID, translate(err))
	}
	return nil
}

func (r *postgresRepo) fetchOne(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	orders, err := r.fetch(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return &orders[0], nil
}

func (r *postgresRepo) fetch(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		index  = make(map[string]int)
	)
	for rows.Next() {
		var (
			o         domain.Order
			status    string
			itemID    *string
			variantID string
			productID *string
			quantity  *int
			price     decimal.NullDecimal
			itemCAt   *time.Time
			itemUAt   *time.Time
		)
		if err := rows.Scan(
			&o.ID, &o.UserID, &status, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt,
			&itemID, &variantID, &productID, &quantity, &price, &itemCAt, &itemUAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		pos, seen := index[o.ID]
		if !seen {
			o.Status = domain.OrderStatus(status)
			o.Items = []domain.OrderItem{}
			orders = append(orders, o)
			pos = len(orders) - 1
			index[o.ID] = pos
		}
		if itemID == nil {
			continue
		}
		orders[pos].Items = append(orders[pos].Items, domain.OrderItem{
			ID:        *itemID,
			OrderID:   o.ID,
			VariantID: variantID,
			ProductID: *productID,
			Quantity:  *quantity,
			Price:     price.Decimal,
			CreatedAt: *itemCAt,
			UpdatedAt: *itemUAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}
