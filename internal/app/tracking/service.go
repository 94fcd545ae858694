package tracking

import (
	"context"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
)

type Service struct {
	orders interfaces.OrderReader
	logger logger.Logger
}

func NewService(orders interfaces.OrderReader, logger logger.Logger) *Service {
	return &Service{
		orders: orders,
		logger: logger,
	}
}

func (s *Service) Track(ctx context.Context, orderID uuid.UUID) (*interfaces.TrackingOrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return Response(order), nil
}

// Response renders an order for the customer status page.
func Response(order *domain.Order) *interfaces.TrackingOrderResponse {
	return &interfaces.TrackingOrderResponse{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		TableNumber: order.TableNumber,
		Status:      order.Status,
		Label:       order.Status.Label(),
		TotalAmount: order.TotalAmount,
		Items:       order.Items,
		UpdatedAt:   order.UpdatedAt,
	}
}

func (s *Service) History(ctx context.Context, orderID uuid.UUID) ([]*domain.StatusLog, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.StatusHistory(ctx, orderID)
}
