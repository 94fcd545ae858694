package amqp

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
)

type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
	}
}

// HandleNotification logs the customer-facing toast for every status change.
// Other change kinds are ignored.
func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	ev, err := Decode(body)
	if err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	changed, ok := ev.(domain.OrderStatusChanged)
	if !ok {
		return nil
	}

	h.logger.Info("notification_sent", changed.Notification(), "", map[string]interface{}{
		"order_id":   changed.OrderID,
		"old_status": changed.OldStatus,
		"new_status": changed.NewStatus,
		"changed_by": changed.ChangedBy,
		"label":      changed.NewStatus.Label(),
	})

	fmt.Printf("Notification for order %s: %s\n", changed.OrderID, changed.Notification())
	return nil
}
