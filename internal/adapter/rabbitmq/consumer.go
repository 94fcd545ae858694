package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

var reconnectDelay = 5 * time.Second

// Bindings for each consumer role.
var (
	DashboardBindings    = []string{"orders.*", "order_items.*"}
	NotificationBindings = []string{"orders.updated"}
)

type consumer struct {
	conn     Connection
	exchange string
	bindings []string
	logger   logger.Logger
}

// NewConsumer reads the change exchange through a private auto-delete queue.
// Messages published while the queue does not exist are never seen, so every
// successful bind is reported through onReady once deliveries have started.
func NewConsumer(conn Connection, exchange string, bindings []string, logger logger.Logger) interfaces.ChangeConsumer {
	return &consumer{conn: conn, exchange: exchange, bindings: bindings, logger: logger}
}

func (c *consumer) ConsumeChanges(ctx context.Context, handler interfaces.ChangeHandler, onReady func(reconnected bool)) error {
	bound := false
	for {
		err := c.consume(ctx, handler, func() {
			if onReady != nil {
				onReady(bound)
			}
			bound = true
		})

		// Если контекст отменен - выходим
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Error("consumer_disconnected", "Change consumer disconnected, reconnecting", "", map[string]interface{}{
			"exchange": c.exchange,
			"delay":    reconnectDelay.String(),
		}, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}

		if c.conn.IsClosed() {
			if err := c.conn.Reconnect(); err != nil {
				c.logger.Error("rabbitmq_reconnect_failed", "Failed to reconnect to RabbitMQ", "", nil, err)
			}
		}
	}
}

func (c *consumer) consume(ctx context.Context, handler interfaces.ChangeHandler, ready func()) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	// Отслеживаем закрытие канала
	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(c.exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Временная эксклюзивная очередь
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range c.bindings {
		if err := ch.QueueBind(q.Name, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer_started", "Consuming change events", "", map[string]interface{}{
		"queue":    q.Name,
		"bindings": c.bindings,
	})
	ready()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			// Ошибки обработки не останавливают потребителя
			_ = handler(ctx, msg.Body)
		}
	}
}
