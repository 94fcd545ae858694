package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
)

// Service keeps table sessions in memory. Every method returns a copy of the
// session, so callers never share a cart with the service.
type Service struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session

	orders interfaces.OrderService
	reader interfaces.OrderReader
	menu   interfaces.MenuRepository
	idem   interfaces.IdempotencyStore
	logger logger.Logger
	now    func() time.Time
}

// NewService wires the session manager. idem may be nil, in which case
// checkout keys are ignored.
func NewService(
	orders interfaces.OrderService,
	reader interfaces.OrderReader,
	menu interfaces.MenuRepository,
	idem interfaces.IdempotencyStore,
	logger logger.Logger,
) *Service {
	return &Service{
		sessions: make(map[uuid.UUID]*domain.Session),
		orders:   orders,
		reader:   reader,
		menu:     menu,
		idem:     idem,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Open(tableNumber int) *domain.Session {
	sess := &domain.Session{
		ID:          uuid.New(),
		TableNumber: tableNumber,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("session_opened", "Table session opened", "", map[string]interface{}{
		"session_id":   sess.ID,
		"table_number": tableNumber,
	})
	return snapshot(sess)
}

func (s *Service) Get(id uuid.UUID) (*domain.Session, error) {
	return s.update(id, func(*domain.Session) error { return nil })
}

func (s *Service) SetCustomer(id uuid.UUID, customer domain.Customer) (*domain.Session, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	return s.update(id, func(sess *domain.Session) error {
		sess.Customer = &customer
		return nil
	})
}

func (s *Service) AddItem(ctx context.Context, id, menuItemID uuid.UUID) (*domain.Session, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	items, err := s.menu.FindItems(ctx, []uuid.UUID{menuItemID})
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find_menu_items", Err: err}
	}
	item, ok := items[menuItemID]
	if !ok || !item.IsAvailable {
		return nil, domain.ErrMenuItemNotFound
	}

	return s.update(id, func(sess *domain.Session) error {
		sess.Cart.AddItem(*item)
		return nil
	})
}

func (s *Service) UpdateQuantity(id, menuItemID uuid.UUID, delta int) (*domain.Session, error) {
	return s.update(id, func(sess *domain.Session) error {
		sess.Cart.UpdateQuantity(menuItemID, delta)
		return nil
	})
}

func (s *Service) Clear(id uuid.UUID) (*domain.Session, error) {
	return s.update(id, func(sess *domain.Session) error {
		sess.Cart.Clear()
		return nil
	})
}

func (s *Service) Close(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Checkout submits the session's cart. A repeated idempotency key returns the
// order created by the first successful call instead of a new one.
func (s *Service) Checkout(ctx context.Context, id uuid.UUID, idempotencyKey string) (*domain.Order, error) {
	requestID := logger.RequestID(ctx)

	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Customer == nil {
		return nil, &domain.ValidationError{Field: "customer", Message: "customer details are required before checkout"}
	}

	scope := "session:" + id.String()
	useKey := idempotencyKey != "" && s.idem != nil

	if useKey {
		if order, ok := s.recall(ctx, scope, idempotencyKey); ok {
			return order, nil
		}
	}
	if sess.Cart.Empty() {
		return nil, domain.ErrEmptyCart
	}

	if useKey {
		locked, err := s.idem.TryLock(ctx, scope, idempotencyKey)
		switch {
		case err != nil:
			// Redis is down: submit without the guard rather than refuse the order.
			s.logger.Error("idempotency_unavailable", "Idempotency store unavailable", requestID, nil, err)
			useKey = false
		case !locked:
			return nil, domain.ErrCheckoutInProgress
		}
	}

	submitted := sess.Cart.Lines()
	order, err := s.orders.Submit(ctx, interfaces.SubmitOrderCommand{
		TableNumber: sess.TableNumber,
		Customer:    *sess.Customer,
		Lines:       submitted,
	})
	if err != nil {
		if useKey {
			if rerr := s.idem.Release(ctx, scope, idempotencyKey); rerr != nil {
				s.logger.Error("idempotency_release_failed", "Failed to release checkout key", requestID, nil, rerr)
			}
		}
		return nil, err
	}

	if useKey {
		if err := s.idem.Remember(ctx, scope, idempotencyKey, order.ID.String()); err != nil {
			s.logger.Error("idempotency_remember_failed", "Failed to remember checkout key", requestID, map[string]interface{}{
				"order_id": order.ID,
			}, err)
		}
	}

	if _, err := s.update(id, func(sess *domain.Session) error {
		// Только отправленные позиции; добавленные во время Submit остаются
		sess.Cart.Remove(submitted)
		sess.Orders = append(sess.Orders, order.ID)
		return nil
	}); err != nil {
		s.logger.Debug("session_closed_during_checkout", "Session closed before cart was cleared", requestID, map[string]interface{}{
			"session_id": id,
		})
	}

	s.logger.Info("order_checked_out", fmt.Sprintf("Order #%d placed", order.Number), requestID, map[string]interface{}{
		"session_id": id,
		"order_id":   order.ID,
	})
	return order, nil
}

func (s *Service) recall(ctx context.Context, scope, key string) (*domain.Order, bool) {
	value, ok, err := s.idem.Recall(ctx, scope, key)
	if err != nil || !ok {
		return nil, false
	}
	orderID, err := uuid.Parse(value)
	if err != nil {
		return nil, false
	}
	order, err := s.reader.FindByID(ctx, orderID)
	if err != nil {
		return nil, false
	}
	return order, true
}

func (s *Service) update(id uuid.UUID, fn func(*domain.Session) error) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

func snapshot(sess *domain.Session) *domain.Session {
	c := *sess
	c.Cart = sess.Cart.Clone()
	if sess.Customer != nil {
		customer := *sess.Customer
		c.Customer = &customer
	}
	c.Orders = append([]uuid.UUID(nil), sess.Orders...)
	return &c
}
