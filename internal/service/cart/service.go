package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/payment"
	orderrepo "storefront/internal/repository/order"
)

type Service struct {
	repo     orderRepo
	catalog  variantCatalog
	payments payment.Gateway
	cache    cache.CartCache
	events   events.Publisher
	logger   *zap.Logger
	now      func() time.Time
	reads    singleflight.Group

	checkoutTimeout time.Duration
}

const defaultCheckoutTimeout = 30 * time.Second

type orderRepo interface {
	FindOpenByUser(ctx context.Context, userID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	WithinUserLock(ctx context.Context, userID string, fn func(ctx context.Context, store orderrepo.Store) error) error
}

type variantCatalog interface {
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
}

type Option func(*Service)

func WithCache(c cache.CartCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCheckoutTimeout bounds a whole checkout, including lock wait, charge and save.
func WithCheckoutTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.checkoutTimeout = d
		}
	}
}

func New(repo orderRepo, catalog variantCatalog, payments payment.Gateway, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		catalog:  catalog,
		payments: payments,
		cache:    cache.Nop{},
		events:   events.Nop{},
		logger:   zap.NewNop(),
		now:      time.Now,

		checkoutTimeout: defaultCheckoutTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("cart")
	return s
}

// AddItem puts one unit of variantID into the user's cart, creating the cart
// on first use. An order left in payment status by a failed checkout is
// reopened and receives the item.
func (s *Service) AddItem(ctx context.Context, userID, variantID string) (*domain.Order, error) {
	v, err := s.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	var out *domain.Order
	err = s.mutate(ctx, userID, func(ctx context.Context, store orderrepo.Store) error {
		cart, err := s.getOrCreateOpenCart(ctx, store, userID)
		if err != nil {
			return err
		}
		if err := cart.AddVariant(*v, s.now()); err != nil {
			return err
		}
		if err := store.Save(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("item added",
		zap.String("user_id", userID),
		zap.String("order_id", out.ID),
		zap.String("variant_id", variantID),
		zap.Stringer("total", out.TotalPrice),
	)
	return out, nil
}

// RemoveItem takes one unit of variantID out of the user's cart. When that
// empties the cart the cart is deleted and a nil order is returned.
// A cart that is already empty is deleted and ErrEmptyCart is returned.
func (s *Service) RemoveItem(ctx context.Context, userID, variantID string) (*domain.Order, error) {
	variantID = canonicalID(variantID)
	var (
		out     *domain.Order
		failure error
	)
	err := s.mutate(ctx, userID, func(ctx context.Context, store orderrepo.Store) error {
		cart, err := store.FindOpenByUser(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidState
		}
		if err != nil {
			return err
		}

		if cart.IsEmpty() {
			if err := store.Delete(ctx, cart.ID); err != nil {
				return fmt.Errorf("delete empty cart: %w", err)
			}
			failure = domain.ErrEmptyCart
			return nil
		}

		if err := cart.RemoveVariant(variantID, s.now()); err != nil {
			return err
		}
		if cart.IsEmpty() {
			if err := store.Delete(ctx, cart.ID); err != nil {
				return fmt.Errorf("delete emptied cart: %w", err)
			}
			return nil
		}
		if err := store.Save(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		s.logger.Info("removed empty cart", zap.String("user_id", userID))
		return nil, failure
	}
	s.logger.Info("item removed",
		zap.String("user_id", userID),
		zap.String("variant_id", variantID),
		zap.Bool("cart_deleted", out == nil),
	)
	return out, nil
}

// GetCart returns the user's open cart. found is false when the user has none.
func (s *Service) GetCart(ctx context.Context, userID string) (cart *domain.Order, found bool, err error) {
	cached, err := s.cache.Get(ctx, userID)
	switch {
	case err == nil:
		return cached, true, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn("cart cache read failed", zap.String("user_id", userID), zap.Error(err))
	}

	res, err, _ := s.reads.Do(userID, func() (any, error) {
		gen, genErr := s.cache.Generation(ctx, userID)
		cart, err := s.repo.FindOpenByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			if err := s.cache.Set(ctx, userID, cart, gen); err != nil {
				s.logger.Warn("cart cache fill failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
		return cart, nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// Callers of a shared flight must not alias the same aggregate.
	return cloneOrder(res.(*domain.Order)), true, nil
}

// Checkout charges the user's pending order. On approval the order becomes
// complete. On decline or gateway error the order is persisted in payment
// status and ErrPaymentFailed is returned together with it.
//
// Checkout ignores cancellation of ctx so that a charge the gateway approved
// is always recorded. It is bounded by the checkout timeout instead.
func (s *Service) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.checkoutTimeout)
	defer cancel()

	var (
		out     *domain.Order
		failure error
	)
	err := s.mutate(ctx, userID, func(ctx context.Context, store orderrepo.Store) error {
		order, err := store.FindPendingByUser(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if order.IsEmpty() {
			return domain.ErrEmptyCart
		}

		approved, chargeErr := s.payments.Charge(ctx, order.ID, order.TotalPrice)
		now := s.now()
		if chargeErr != nil || !approved {
			if err := order.MarkPaymentFailed(now); err != nil {
				return err
			}
			if err := store.Save(ctx, order); err != nil {
				return fmt.Errorf("save failed checkout: %w", err)
			}
			failure = domain.ErrPaymentFailed
			if chargeErr != nil {
				failure = fmt.Errorf("%w: %w", domain.ErrPaymentFailed, chargeErr)
			}
			out = order
			return nil
		}

		if err := order.MarkPaid(now); err != nil {
			return err
		}
		if err := store.Save(ctx, order); err != nil {
			return fmt.Errorf("save completed order: %w", err)
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if failure != nil {
		s.logger.Info("checkout failed",
			zap.String("user_id", userID),
			zap.String("order_id", out.ID),
			zap.Error(failure),
		)
		return out, failure
	}

	s.logger.Info("checkout complete",
		zap.String("user_id", userID),
		zap.String("order_id", out.ID),
		zap.Stringer("total", out.TotalPrice),
	)
	if err := s.events.PublishOrderCompleted(ctx, out); err != nil {
		s.logger.Error("publish order completed", zap.String("order_id", out.ID), zap.Error(err))
	}
	return out, nil
}

// ClearCart deletes the user's open cart with all its items.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	return s.mutate(ctx, userID, func(ctx context.Context, store orderrepo.Store) error {
		cart, err := store.FindOpenByUser(ctx, userID)
		if err != nil {
			return err
		}
		return store.Delete(ctx, cart.ID)
	})
}

// ListOrders returns every order of the user, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetOrder returns one of the user's orders. Orders of other users are not found.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) getOrCreateOpenCart(ctx context.Context, store orderrepo.Store, userID string) (*domain.Order, error) {
	cart, err := store.FindPendingByUser(ctx, userID)
	switch {
	case err == nil:
		if cart.Status == domain.StatusPayment {
			if err := cart.Reopen(s.now()); err != nil {
				return nil, err
			}
			s.logger.Info("reopened cart after failed payment", zap.String("user_id", userID), zap.String("order_id", cart.ID))
		}
		return cart, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	cart = domain.NewCart(userID)
	if err := store.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	s.logger.Debug("created cart", zap.String("user_id", userID), zap.String("order_id", cart.ID))
	return cart, nil
}

// mutate runs fn under the user's lock and drops the cached cart afterwards,
// whether or not fn committed.
func (s *Service) mutate(ctx context.Context, userID string, fn func(ctx context.Context, store orderrepo.Store) error) error {
	defer func() {
		if err := s.cache.Invalidate(context.WithoutCancel(ctx), userID); err != nil {
			s.logger.Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
		}
	}()
	return s.repo.WithinUserLock(ctx, userID, fn)
}

// canonicalID returns the lowercase hyphenated form of a UUID so it compares
// equal to the ids the catalog stores. Other ids pass through unchanged.
func canonicalID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	if c.Items == nil {
		c.Items = []domain.OrderItem{}
	}
	return &c
}
