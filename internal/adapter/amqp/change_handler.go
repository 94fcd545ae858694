package amqp

import (
	"context"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// ChangeHandler feeds broker messages into the local subscription router.
type ChangeHandler struct {
	router interfaces.ChangePublisher
	logger logger.Logger
}

func NewChangeHandler(router interfaces.ChangePublisher, logger logger.Logger) *ChangeHandler {
	return &ChangeHandler{
		router: router,
		logger: logger,
	}
}

func (h *ChangeHandler) HandleChange(ctx context.Context, body []byte) error {
	ev, err := Decode(body)
	if err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse change message", "", nil, err)
		return err
	}

	h.logger.Debug("change_received", "Change event received", "", map[string]interface{}{
		"entity_kind": ev.Kind(),
		"operation":   ev.Operation(),
		"order_id":    ev.Order(),
	})
	return h.router.Publish(ctx, ev)
}
