package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
)

var ErrInjected = errors.New("injected failure")

// MemoryStore is an in-memory OrderStore with the same transactional and
// compare-and-swap behavior as the postgres repository.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
	logs   []*domain.StatusLog
	seq    int64
	logSeq int64
	Now    func() time.Time

	// FailItems makes the next n CreateItems calls fail.
	FailItems int
	// BeforeList runs before every ListOrders, outside the store lock.
	BeforeList func(ctx context.Context) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[uuid.UUID]*domain.Order),
		Now:    time.Now,
	}
}

type memoryTx struct {
	store  *MemoryStore
	orders []*domain.Order
	items  []domain.OrderItem
	logs   []*domain.StatusLog
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx interfaces.OrderWriter) error) error {
	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range tx.orders {
		stored := o.Clone()
		stored.Items = nil
		stored.ItemsLoaded = false
		s.orders[o.ID] = stored
	}
	for _, it := range tx.items {
		if o, ok := s.orders[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	for _, l := range tx.logs {
		s.logSeq++
		l.ID = s.logSeq
		s.logs = append(s.logs, l)
	}
	return nil
}

func (t *memoryTx) CreateOrder(_ context.Context, order *domain.Order) error {
	t.store.mu.Lock()
	t.store.seq++
	order.Number = t.store.seq
	t.store.mu.Unlock()

	t.orders = append(t.orders, order)
	return nil
}

func (t *memoryTx) CreateItems(_ context.Context, items []domain.OrderItem) error {
	t.store.mu.Lock()
	fail := t.store.FailItems > 0
	if fail {
		t.store.FailItems--
	}
	t.store.mu.Unlock()

	if fail {
		return ErrInjected
	}
	t.items = append(t.items, items...)
	return nil
}

func (t *memoryTx) LogStatus(_ context.Context, orderID uuid.UUID, status domain.Status, changedBy string) error {
	t.logs = append(t.logs, &domain.StatusLog{
		OrderID:   orderID,
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: t.store.Now(),
	})
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status, changedBy string) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, time.Time{}, nil
	}
	now := s.Now()
	o.Status = to
	o.UpdatedAt = now

	s.logSeq++
	s.logs = append(s.logs, &domain.StatusLog{ID: s.logSeq, OrderID: id, Status: to, ChangedBy: changedBy, ChangedAt: now})
	return true, now, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	orders, err := s.ListOrders(ctx, domain.OrderFilter{IDs: []uuid.UUID{id}, WithItems: true})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return orders[0], nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	if s.BeforeList != nil {
		if err := s.BeforeList(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Order
	for _, o := range s.orders {
		if !matches(o, filter) {
			continue
		}
		c := o.Clone()
		if filter.WithItems {
			c.ItemsLoaded = true
			if c.Items == nil {
				c.Items = []domain.OrderItem{}
			}
		} else {
			c.Items = nil
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func matches(o *domain.Order, f domain.OrderFilter) bool {
	if f.Since != nil && o.CreatedAt.Before(*f.Since) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if len(f.IDs) > 0 && !containsID(f.IDs, o.ID) {
		return false
	}
	return true
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsID(list []uuid.UUID, id uuid.UUID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func (s *MemoryStore) StatusHistory(_ context.Context, id uuid.UUID) ([]*domain.StatusLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.StatusLog
	for _, l := range s.logs {
		if l.OrderID == id {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

// Put stores o directly, bypassing the transactional path.
func (s *MemoryStore) Put(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := o.Clone()
	if c.Number == 0 {
		s.seq++
		c.Number = s.seq
	}
	s.orders[c.ID] = c
}

// SetStatus overwrites an order's status without logging or CAS.
func (s *MemoryStore) SetStatus(id uuid.UUID, status domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.orders[id]; ok {
		o.Status = status
		o.UpdatedAt = s.Now()
	}
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
