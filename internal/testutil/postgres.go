package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

// StartPostgres returns a migrated pool. TEST_DB_DSN points the tests at an
// existing database; otherwise a throwaway container is started.
// Everything is torn down through t.Cleanup.
func StartPostgres(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		container, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
			postgres.WithDatabase("storefront_test"),
			postgres.WithUsername("storefront"),
			postgres.WithPassword("storefront"),
			postgres.BasicWaitStrategies(),
		)
		testcontainers.CleanupContainer(t, container)
		require.NoError(t, err, "start postgres container")

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "container connection string")
	}

	_, err := migrate.Apply(ctx, dsn)
	require.NoError(t, err, "apply migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "connect db")
	t.Cleanup(pool.Close)

	Truncate(t, pool)
	return pool
}

// Truncate empties every application table.
func Truncate(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE reviews, favorites, order_items, orders, variants, products, categories, tokens, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "truncate tables")
}

// InsertUser creates a verified user and returns its id.
func InsertUser(t testing.TB, pool *pgxpool.Pool, mobile string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (mobile_number, is_verified) VALUES ($1, TRUE) RETURNING id::text`, mobile).Scan(&id)
	require.NoError(t, err, "insert user")
	return id
}

// InsertVariant creates a single-variant product priced at price and returns the variant.
func InsertVariant(t testing.TB, pool *pgxpool.Pool, title, price string) domain.Variant {
	t.Helper()
	ctx := context.Background()
	var v domain.Variant
	err := pool.QueryRow(ctx, `INSERT INTO products (title) VALUES ($1) RETURNING id::text`, title).Scan(&v.ProductID)
	require.NoError(t, err, "insert product")

	var color, size string
	err = pool.QueryRow(ctx, `
INSERT INTO variants (product_id, price) VALUES ($1, $2)
RETURNING id::text, color, size, price, created_at, updated_at
`, v.ProductID, price).Scan(&v.ID, &color, &size, &v.Price, &v.CreatedAt, &v.UpdatedAt)
	require.NoError(t, err, "insert variant")
	v.Color = domain.Color(color)
	v.Size = domain.Size(size)
	return v
}
