package order

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// Memory is an in-process Repository with the same locking and uniqueness
// rules as the Postgres one. Used by service and handler tests.
type Memory struct {
	mu     sync.Mutex
	orders map[string]*domain.Order

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

var (
	_ Repository = (*Memory)(nil)
	_ Store      = (*memoryTx)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		orders: make(map[string]*domain.Order),
		locks:  make(map[string]*sync.Mutex),
		now:    time.Now,
	}
}

func (m *Memory) WithinUserLock(ctx context.Context, userID string, fn func(ctx context.Context, store Store) error) error {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	tx := &memoryTx{repo: m, dirty: make(map[string]*domain.Order)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range tx.dirty {
		if o == nil {
			delete(m.orders, id)
			continue
		}
		m.orders[id] = o
	}
	return nil
}

func (m *Memory) FindOpenByUser(ctx context.Context, userID string) (*domain.Order, error) {
	return (&memoryTx{repo: m}).FindOpenByUser(ctx, userID)
}

func (m *Memory) FindPendingByUser(ctx context.Context, userID string) (*domain.Order, error) {
	return (&memoryTx{repo: m}).FindPendingByUser(ctx, userID)
}

func (m *Memory) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return (&memoryTx{repo: m}).GetByID(ctx, id)
}

func (m *Memory) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return (&memoryTx{repo: m}).ListByUser(ctx, userID)
}

func (m *Memory) Save(ctx context.Context, o *domain.Order) error {
	return m.WithinUserLock(ctx, o.UserID, func(ctx context.Context, store Store) error {
		return store.Save(ctx, o)
	})
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	o, err := m.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return m.WithinUserLock(ctx, o.UserID, func(ctx context.Context, store Store) error {
		return store.Delete(ctx, id)
	})
}

func (m *Memory) userLock(userID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func (m *Memory) nextID() string {
	return uuid.NewString()
}

// memoryTx stages writes until WithinUserLock commits them. A nil dirty map
// reads straight from the repository.
type memoryTx struct {
	repo  *Memory
	dirty map[string]*domain.Order
}

func (t *memoryTx) snapshot() []*domain.Order {
	t.repo.mu.Lock()
	out := make([]*domain.Order, 0, len(t.repo.orders))
	for id, o := range t.repo.orders {
		if staged, ok := t.dirty[id]; ok {
			if staged != nil {
				out = append(out, staged)
			}
			continue
		}
		out = append(out, o)
	}
	t.repo.mu.Unlock()
	for id, o := range t.dirty {
		if o == nil {
			continue
		}
		if !slices.ContainsFunc(out, func(x *domain.Order) bool { return x.ID == id }) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (t *memoryTx) FindOpenByUser(_ context.Context, userID string) (*domain.Order, error) {
	for _, o := range t.snapshot() {
		if o.UserID == userID && o.Status == domain.StatusShoppingCart {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memoryTx) FindPendingByUser(ctx context.Context, userID string) (*domain.Order, error) {
	if o, err := t.FindOpenByUser(ctx, userID); err == nil {
		return o, nil
	}
	for _, o := range t.snapshot() {
		if o.UserID == userID && o.Status == domain.StatusPayment {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memoryTx) GetByID(_ context.Context, id string) (*domain.Order, error) {
	for _, o := range t.snapshot() {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memoryTx) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range t.snapshot() {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memoryTx) Save(_ context.Context, o *domain.Order) error {
	if o.Status != domain.StatusComplete {
		for _, other := range t.snapshot() {
			if other.ID != o.ID && other.UserID == o.UserID && other.Status != domain.StatusComplete {
				return domain.ErrAlreadyExists
			}
		}
	}

	now := t.repo.now()
	if o.ID == "" {
		o.ID = t.repo.nextID()
		o.CreatedAt = now
	} else if _, err := t.GetByID(context.Background(), o.ID); err != nil {
		return err
	}
	o.UpdatedAt = now
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		if o.Items[i].ID == "" {
			o.Items[i].ID = t.repo.nextID()
			o.Items[i].CreatedAt = now
		}
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	t.dirty[o.ID] = cloneOrder(o)
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, id string) error {
	if _, err := t.GetByID(ctx, id); err != nil {
		return err
	}
	t.dirty[id] = nil
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if c.Items == nil {
		c.Items = []domain.OrderItem{}
	}
	return &c
}
