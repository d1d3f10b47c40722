package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"storefront/internal/domain"
	"storefront/internal/repository/order"
	"storefront/internal/testutil"
)

type orderRepositorySuite struct {
	suite.Suite

	pool *pgxpool.Pool
	repo order.Repository
}

func TestOrderRepositorySuite(t *testing.T) {
	suite.Run(t, new(orderRepositorySuite))
}

func (s *orderRepositorySuite) SetupSuite() {
	s.pool = testutil.StartPostgres(s.T())
	s.repo = order.NewPostgres(s.pool, nil)
}

func (s *orderRepositorySuite) TearDownTest() {
	testutil.Truncate(s.T(), s.pool)
}

var orderOpts = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmpopts.IgnoreFields(domain.Order{}, "CreatedAt", "UpdatedAt"),
	cmpopts.IgnoreFields(domain.OrderItem{}, "CreatedAt", "UpdatedAt"),
}

func (s *orderRepositorySuite) newUser() string {
	return testutil.InsertUser(s.T(), s.pool, gofakeit.Phone())
}

func (s *orderRepositorySuite) newVariant() domain.Variant {
	price := decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2)
	return testutil.InsertVariant(s.T(), s.pool, gofakeit.ProductName(), price.String())
}

func (s *orderRepositorySuite) TestSaveAndFindOpen() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()
	v1, v2 := s.newVariant(), s.newVariant()

	cart := domain.NewCart(userID)
	now := time.Now()
	require.NoError(t, cart.AddVariant(v1, now))
	require.NoError(t, cart.AddVariant(v2, now))
	require.NoError(t, cart.AddVariant(v1, now))
	require.NoError(t, s.repo.Save(ctx, cart))
	require.NotEmpty(t, cart.ID)
	for _, item := range cart.Items {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, cart.ID, item.OrderID)
	}

	got, err := s.repo.FindOpenByUser(ctx, userID)
	require.NoError(t, err)
	if diff := cmp.Diff(cart, got, orderOpts); diff != "" {
		t.Fatalf("stored cart mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, v1.ID, got.Items[0].VariantID, "items keep insertion order")
	assert.True(t, got.TotalPrice.Equal(got.ComputeTotal()))

	byID, err := s.repo.GetByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(got, byID, orderOpts))
}

func (s *orderRepositorySuite) TestSavePrunesRemovedItems() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()
	v1, v2 := s.newVariant(), s.newVariant()

	cart := domain.NewCart(userID)
	now := time.Now()
	require.NoError(t, cart.AddVariant(v1, now))
	require.NoError(t, cart.AddVariant(v2, now))
	require.NoError(t, s.repo.Save(ctx, cart))

	require.NoError(t, cart.RemoveVariant(v1.ID, now))
	require.NoError(t, cart.AddVariant(v2, now))
	require.NoError(t, s.repo.Save(ctx, cart))

	got, err := s.repo.FindOpenByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, v2.ID, got.Items[0].VariantID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.TotalPrice.Equal(v2.Price.Mul(decimal.NewFromInt(2))))
}

func (s *orderRepositorySuite) TestFindOpenIgnoresSettledOrders() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()
	v := s.newVariant()

	cart := domain.NewCart(userID)
	require.NoError(t, cart.AddVariant(v, time.Now()))
	require.NoError(t, cart.MarkPaymentFailed(time.Now()))
	require.NoError(t, s.repo.Save(ctx, cart))

	_, err := s.repo.FindOpenByUser(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := s.repo.FindPendingByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, pending.ID)
	assert.Equal(t, domain.StatusPayment, pending.Status)

	require.NoError(t, pending.MarkPaid(time.Now()))
	require.NoError(t, s.repo.Save(ctx, pending))

	_, err = s.repo.FindPendingByUser(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (s *orderRepositorySuite) TestOnePendingOrderPerUser() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()

	require.NoError(t, s.repo.Save(ctx, domain.NewCart(userID)))
	err := s.repo.Save(ctx, domain.NewCart(userID))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func (s *orderRepositorySuite) TestDelete() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()

	cart := domain.NewCart(userID)
	require.NoError(t, cart.AddVariant(s.newVariant(), time.Now()))
	require.NoError(t, s.repo.Save(ctx, cart))

	require.NoError(t, s.repo.Delete(ctx, cart.ID))
	_, err := s.repo.GetByID(ctx, cart.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.repo.Delete(ctx, cart.ID), domain.ErrNotFound)

	var items int
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT count(*) FROM order_items`).Scan(&items))
	assert.Zero(t, items)
}

func (s *orderRepositorySuite) TestListByUserNewestFirst() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()
	other := s.newUser()

	var want []string
	for range 3 {
		o := domain.NewCart(userID)
		require.NoError(t, o.AddVariant(s.newVariant(), time.Now()))
		require.NoError(t, o.MarkPaid(time.Now()))
		require.NoError(t, s.repo.Save(ctx, o))
		want = append([]string{o.ID}, want...)
	}
	require.NoError(t, s.repo.Save(ctx, domain.NewCart(other)))

	orders, err := s.repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	got := make([]string, 0, len(orders))
	for _, o := range orders {
		got = append(got, o.ID)
		assert.Len(t, o.Items, 1)
	}
	assert.Equal(t, want, got)
}

func (s *orderRepositorySuite) TestDeletedVariantKeepsHistory() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()
	v := s.newVariant()

	o := domain.NewCart(userID)
	require.NoError(t, o.AddVariant(v, time.Now()))
	require.NoError(t, o.MarkPaid(time.Now()))
	require.NoError(t, s.repo.Save(ctx, o))

	_, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, v.ProductID)
	require.NoError(t, err)

	got, err := s.repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Empty(t, got.Items[0].VariantID)
	assert.Equal(t, v.ProductID, got.Items[0].ProductID)
	assert.True(t, got.Items[0].Price.Equal(v.Price))
}

func (s *orderRepositorySuite) TestWithinUserLockSerializesWriters() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()
	v := s.newVariant()

	const writers = 12
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.repo.WithinUserLock(ctx, userID, func(ctx context.Context, store order.Store) error {
				cart, err := store.FindOpenByUser(ctx, userID)
				if errors.Is(err, domain.ErrNotFound) {
					cart = domain.NewCart(userID)
				} else if err != nil {
					return err
				}
				if err := cart.AddVariant(v, time.Now()); err != nil {
					return err
				}
				return store.Save(ctx, cart)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := s.repo.FindOpenByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, writers, cart.Items[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(v.Price.Mul(decimal.NewFromInt(writers))))
}

func (s *orderRepositorySuite) TestWithinUserLockRollsBackOnError() {
	t := s.T()
	ctx := t.Context()
	userID := s.newUser()
	boom := errors.New("boom")

	err := s.repo.WithinUserLock(ctx, userID, func(ctx context.Context, store order.Store) error {
		if err := store.Save(ctx, domain.NewCart(userID)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.repo.FindOpenByUser(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
