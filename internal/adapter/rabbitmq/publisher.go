package rabbitmq

import (
	"context"
	"fmt"

	changes "github.com/YelzhanWeb/tableorder/internal/adapter/amqp"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeKind = "topic"

type publisher struct {
	conn     Connection
	exchange string
}

func NewPublisher(conn Connection, exchange string) interfaces.ChangePublisher {
	return &publisher{conn: conn, exchange: exchange}
}

// Publish sends ev to the change exchange under "<topic>.<operation>".
func (p *publisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	body, err := changes.Encode(ev)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, changes.RoutingKey(ev), false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   ev.Key().String(),
		Timestamp:   ev.At(),
		Type:        string(ev.Kind()) + "." + string(ev.Operation()),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
