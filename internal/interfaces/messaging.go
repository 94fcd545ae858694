package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
)

// ChangeMessage is the wire envelope of a domain.ChangeEvent. The flat
// header fields are always set; Payload carries the variant's own fields.
type ChangeMessage struct {
	EntityKind domain.EntityKind `json:"entity_kind"`
	Operation  domain.Operation  `json:"operation"`
	EntityID   uuid.UUID         `json:"entity_id"`
	OrderID    uuid.UUID         `json:"order_id"`
	NewStatus  *domain.Status    `json:"new_status,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    json.RawMessage   `json:"payload"`
}

// Интерфейсы Messaging (Adapter/RabbitMQ)
type ChangePublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

type ChangeConsumer interface {
	// ConsumeChanges blocks until ctx ends. onReady is called each time the
	// queue is bound and delivering; reconnected is false only for the first
	// bind. Changes published before that moment may have been missed.
	ConsumeChanges(ctx context.Context, handler ChangeHandler, onReady func(reconnected bool)) error
}

type ChangeHandler func(ctx context.Context, body []byte) error
