package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Status change requests by outcome",
	},
	[]string{"to", "outcome"},
)

// Service applies kitchen and admin status changes.
type Service struct {
	store     interfaces.OrderStore
	publisher interfaces.ChangePublisher
	logger    logger.Logger
}

func NewService(store interfaces.OrderStore, publisher interfaces.ChangePublisher, logger logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// UpdateStatus validates and applies one transition. A request that loses
// the race to another terminal, or asks for the status the order already
// holds, returns domain.ErrStaleApplication with Applied=false.
func (s *Service) UpdateStatus(ctx context.Context, cmd interfaces.UpdateStatusCommand) (*interfaces.StatusUpdateResult, error) {
	requestID := logger.RequestID(ctx)

	order, err := s.store.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "find_order", Err: err}
	}

	result := &interfaces.StatusUpdateResult{
		OrderID:   order.ID,
		OldStatus: order.Status,
		NewStatus: order.Status,
		UpdatedAt: order.UpdatedAt,
	}

	// 1. Проверка перехода и прав роли
	decision := domain.Validate(order.Status, cmd.Requested, cmd.Role)
	if decision.Noop() {
		transitionsTotal.WithLabelValues(string(cmd.Requested), "noop").Inc()
		return result, domain.ErrStaleApplication
	}
	if !decision.Allowed {
		transitionsTotal.WithLabelValues(string(cmd.Requested), "rejected").Inc()
		return nil, &domain.TransitionError{From: order.Status, To: cmd.Requested, Role: cmd.Role, Decision: decision}
	}

	// 2. CAS в БД, одна повторная попытка при ошибке соединения
	applied, updatedAt, err := s.store.UpdateStatus(ctx, order.ID, order.Status, cmd.Requested, cmd.ChangedBy)
	retried := false
	if err != nil && !errors.Is(err, context.Canceled) {
		retried = true
		s.logger.Info("status_update_retry", "Retrying status update", requestID, map[string]interface{}{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		applied, updatedAt, err = s.store.UpdateStatus(ctx, order.ID, order.Status, cmd.Requested, cmd.ChangedBy)
	}
	if err != nil {
		transitionsTotal.WithLabelValues(string(cmd.Requested), "failed").Inc()
		s.logger.Error("db_error", "Failed to update order status", requestID, map[string]interface{}{
			"order_id": order.ID,
		}, err)
		return nil, &domain.PersistenceError{Op: "update_status", Err: err}
	}
	if !applied && retried {
		// Первая попытка могла закоммититься до обрыва соединения
		applied, updatedAt = s.committedEarlier(ctx, order, cmd.Requested)
	}
	if !applied {
		// Другой терминал успел раньше
		transitionsTotal.WithLabelValues(string(cmd.Requested), "stale").Inc()
		s.logger.Debug("status_update_stale", "Order changed concurrently, request ignored", requestID, map[string]interface{}{
			"order_id":  order.ID,
			"expected":  order.Status,
			"requested": cmd.Requested,
		})
		return result, domain.ErrStaleApplication
	}

	transitionsTotal.WithLabelValues(string(cmd.Requested), "applied").Inc()
	result.NewStatus = cmd.Requested
	result.Applied = true
	result.UpdatedAt = updatedAt

	s.logger.Debug("status_updated", fmt.Sprintf("Order #%d moved to %s", order.Number, cmd.Requested), requestID, map[string]interface{}{
		"order_id":   order.ID,
		"old_status": order.Status,
		"changed_by": cmd.ChangedBy,
	})

	// 3. Уведомление; ошибка не откатывает уже примененный переход
	ev := domain.OrderStatusChanged{
		OrderID:   order.ID,
		OldStatus: order.Status,
		NewStatus: cmd.Requested,
		ChangedBy: cmd.ChangedBy,
		Timestamp: updatedAt,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("publish_failed", "Failed to publish status update", requestID, map[string]interface{}{
			"order_id": order.ID,
		}, err)
	}

	return result, nil
}

// committedEarlier reports whether an attempt whose outcome was lost already
// moved the order to requested.
func (s *Service) committedEarlier(ctx context.Context, order *domain.Order, requested domain.Status) (bool, time.Time) {
	current, err := s.store.FindByID(ctx, order.ID)
	if err != nil {
		s.logger.Error("db_error", "Failed to re-read order after retry", logger.RequestID(ctx), map[string]interface{}{
			"order_id": order.ID,
		}, err)
		return false, time.Time{}
	}
	if current.Status != requested {
		return false, time.Time{}
	}
	return true, current.UpdatedAt
}
