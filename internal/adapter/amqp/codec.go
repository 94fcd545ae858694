package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrUnknownChange = errors.New("unknown change message")

type orderCreatedPayload struct {
	OrderNumber int64           `json:"order_number"`
	TableNumber int             `json:"table_number"`
	Status      domain.Status   `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type statusChangedPayload struct {
	OldStatus domain.Status `json:"old_status"`
	ChangedBy string        `json:"changed_by"`
}

type itemCreatedPayload struct {
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// RoutingKey is "<topic>.<operation>", e.g. "orders.updated".
func RoutingKey(ev domain.ChangeEvent) string {
	return string(ev.Topic()) + "." + strings.ToLower(string(ev.Operation()))
}

// Encode renders ev as a ChangeMessage.
func Encode(ev domain.ChangeEvent) ([]byte, error) {
	msg := interfaces.ChangeMessage{
		EntityKind: ev.Kind(),
		Operation:  ev.Operation(),
		EntityID:   ev.Key(),
		OrderID:    ev.Order(),
		Timestamp:  ev.At(),
	}

	var payload interface{}
	switch e := ev.(type) {
	case domain.OrderCreated:
		status := e.Status
		msg.NewStatus = &status
		payload = orderCreatedPayload{
			OrderNumber: e.Number,
			TableNumber: e.TableNumber,
			Status:      e.Status,
			TotalAmount: e.TotalAmount,
		}
	case domain.OrderStatusChanged:
		status := e.NewStatus
		msg.NewStatus = &status
		payload = statusChangedPayload{OldStatus: e.OldStatus, ChangedBy: e.ChangedBy}
	case domain.OrderItemCreated:
		payload = itemCreatedPayload{
			MenuItemID: e.MenuItemID,
			Name:       e.Name,
			UnitPrice:  e.UnitPrice,
			Quantity:   e.Quantity,
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownChange, ev)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg.Payload = raw

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return body, nil
}

// Decode parses a ChangeMessage back into its event variant.
func Decode(body []byte) (domain.ChangeEvent, error) {
	var msg interfaces.ChangeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse change message: %w", err)
	}

	switch {
	case msg.EntityKind == domain.EntityOrder && msg.Operation == domain.OpCreated:
		var p orderCreatedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to parse order payload: %w", err)
		}
		return domain.OrderCreated{
			OrderID:     msg.EntityID,
			Number:      p.OrderNumber,
			TableNumber: p.TableNumber,
			Status:      p.Status,
			TotalAmount: p.TotalAmount,
			CreatedAt:   msg.Timestamp,
		}, nil

	case msg.EntityKind == domain.EntityOrder && msg.Operation == domain.OpUpdated:
		if msg.NewStatus == nil {
			return nil, fmt.Errorf("%w: order update without new_status", ErrUnknownChange)
		}
		var p statusChangedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to parse status payload: %w", err)
		}
		return domain.OrderStatusChanged{
			OrderID:   msg.EntityID,
			OldStatus: p.OldStatus,
			NewStatus: *msg.NewStatus,
			ChangedBy: p.ChangedBy,
			Timestamp: msg.Timestamp,
		}, nil

	case msg.EntityKind == domain.EntityOrderItem && msg.Operation == domain.OpCreated:
		var p itemCreatedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to parse item payload: %w", err)
		}
		return domain.OrderItemCreated{
			ItemID:     msg.EntityID,
			OrderID:    msg.OrderID,
			MenuItemID: p.MenuItemID,
			Name:       p.Name,
			UnitPrice:  p.UnitPrice,
			Quantity:   p.Quantity,
			Timestamp:  msg.Timestamp,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s %s", ErrUnknownChange, msg.EntityKind, msg.Operation)
}
