package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ordersSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Order submissions by outcome",
	},
	[]string{"outcome"},
)

type Service struct {
	store     interfaces.OrderStore
	menu      interfaces.MenuRepository
	publisher interfaces.ChangePublisher
	logger    logger.Logger
	now       func() time.Time
}

func NewService(store interfaces.OrderStore, menu interfaces.MenuRepository, publisher interfaces.ChangePublisher, logger logger.Logger) *Service {
	return &Service{
		store:     store,
		menu:      menu,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit persists a cart as one pending order with its items and emits the
// creation events. Nothing is written unless the whole order is valid.
func (s *Service) Submit(ctx context.Context, cmd interfaces.SubmitOrderCommand) (*domain.Order, error) {
	requestID := logger.RequestID(ctx)

	// 1. Валидация до любых обращений к БД
	if err := cmd.Customer.Validate(); err != nil {
		ordersSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if len(cmd.Lines) == 0 {
		ordersSubmitted.WithLabelValues("invalid").Inc()
		return nil, domain.ErrEmptyCart
	}

	// 2. Актуальные имя и цена из меню
	lines, err := s.snapshotLines(ctx, cmd.Lines)
	if err != nil {
		ordersSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}

	order, err := domain.NewOrder(cmd.TableNumber, cmd.Customer, lines, s.now())
	if err != nil {
		ordersSubmitted.WithLabelValues("invalid").Inc()
		s.logger.Error("validation_failed", "Order validation failed", requestID, nil, err)
		return nil, err
	}

	// 3. Запись в БД, одна повторная попытка при временной ошибке
	err = s.persist(ctx, order)
	if err != nil && domain.Retryable(err) {
		s.logger.Info("order_write_retry", "Retrying order write", requestID, map[string]interface{}{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		err = s.persist(ctx, order)
	}
	if err != nil {
		ordersSubmitted.WithLabelValues("failed").Inc()
		s.logger.Error("db_transaction_failed", "Failed to create order", requestID, map[string]interface{}{
			"order_id": order.ID,
		}, err)
		return nil, err
	}

	ordersSubmitted.WithLabelValues("created").Inc()
	s.logger.Debug("order_received", "Order created in DB", requestID, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.Number,
		"total":        order.TotalAmount.StringFixed(2),
	})

	// 4. Публикация событий; заказ уже сохранен, поэтому ошибка только логируется
	for _, ev := range domain.CreationEvents(order) {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Error("publish_failed", "Failed to publish change event", requestID, map[string]interface{}{
				"order_id": order.ID,
				"kind":     ev.Kind(),
			}, err)
		}
	}

	return order, nil
}

func (s *Service) persist(ctx context.Context, order *domain.Order) error {
	err := s.store.InTx(ctx, func(tx interfaces.OrderWriter) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return &domain.PersistenceError{Op: "create_order", Err: err}
		}
		if err := tx.CreateItems(ctx, order.Items); err != nil {
			return &domain.PartialWriteError{OrderID: order.ID, RolledBack: true, Err: err}
		}
		if err := tx.LogStatus(ctx, order.ID, order.Status, "customer"); err != nil {
			return &domain.PersistenceError{Op: "log_status", Err: err}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var (
		pe *domain.PersistenceError
		pw *domain.PartialWriteError
	)
	if errors.As(err, &pe) || errors.As(err, &pw) {
		return err
	}
	return &domain.PersistenceError{Op: "transaction", Err: err}
}

func (s *Service) snapshotLines(ctx context.Context, lines []domain.CartLine) ([]domain.CartLine, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.Item.ID)
	}

	items, err := s.menu.FindItems(ctx, ids)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "find_menu_items", Err: err}
	}

	out := make([]domain.CartLine, 0, len(lines))
	for _, l := range lines {
		item, ok := items[l.Item.ID]
		if !ok || !item.IsAvailable {
			return nil, fmt.Errorf("%w: %s", domain.ErrMenuItemNotFound, l.Item.Name)
		}
		out = append(out, domain.CartLine{Item: *item, Quantity: l.Quantity})
	}
	return out, nil
}
