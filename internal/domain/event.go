package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Topic string

const (
	TopicOrders     Topic = "orders"
	TopicOrderItems Topic = "order_items"
)

type EntityKind string

const (
	EntityOrder     EntityKind = "Order"
	EntityOrderItem EntityKind = "OrderItem"
)

type Operation string

const (
	OpCreated Operation = "Created"
	OpUpdated Operation = "Updated"
)

// ChangeEvent is emitted after a successful mutation of the order store.
// Implementations: OrderCreated, OrderStatusChanged, OrderItemCreated.
type ChangeEvent interface {
	Topic() Topic
	Kind() EntityKind
	Operation() Operation
	// Key is the entity_id of the changed row.
	Key() uuid.UUID
	// Order is the id of the order the entity belongs to.
	Order() uuid.UUID
	At() time.Time
}

type OrderCreated struct {
	OrderID     uuid.UUID
	Number      int64
	TableNumber int
	Status      Status
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

func (e OrderCreated) Topic() Topic         { return TopicOrders }
func (e OrderCreated) Kind() EntityKind     { return EntityOrder }
func (e OrderCreated) Operation() Operation { return OpCreated }
func (e OrderCreated) Key() uuid.UUID       { return e.OrderID }
func (e OrderCreated) Order() uuid.UUID     { return e.OrderID }
func (e OrderCreated) At() time.Time        { return e.CreatedAt }

type OrderStatusChanged struct {
	OrderID   uuid.UUID
	OldStatus Status
	NewStatus Status
	ChangedBy string
	Timestamp time.Time
}

func (e OrderStatusChanged) Topic() Topic         { return TopicOrders }
func (e OrderStatusChanged) Kind() EntityKind     { return EntityOrder }
func (e OrderStatusChanged) Operation() Operation { return OpUpdated }
func (e OrderStatusChanged) Key() uuid.UUID       { return e.OrderID }
func (e OrderStatusChanged) Order() uuid.UUID     { return e.OrderID }
func (e OrderStatusChanged) At() time.Time        { return e.Timestamp }

type OrderItemCreated struct {
	ItemID     uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	Timestamp  time.Time
}

func (e OrderItemCreated) Topic() Topic         { return TopicOrderItems }
func (e OrderItemCreated) Kind() EntityKind     { return EntityOrderItem }
func (e OrderItemCreated) Operation() Operation { return OpCreated }
func (e OrderItemCreated) Key() uuid.UUID       { return e.ItemID }
func (e OrderItemCreated) Order() uuid.UUID     { return e.OrderID }
func (e OrderItemCreated) At() time.Time        { return e.Timestamp }

func (e OrderItemCreated) Item() OrderItem {
	return OrderItem{
		ID:         e.ItemID,
		OrderID:    e.OrderID,
		MenuItemID: e.MenuItemID,
		Name:       e.Name,
		UnitPrice:  e.UnitPrice,
		Quantity:   e.Quantity,
		LineTotal:  e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))),
	}
}

// CreationEvents returns the events describing a freshly persisted order.
func CreationEvents(o *Order) []ChangeEvent {
	events := make([]ChangeEvent, 0, len(o.Items)+1)
	events = append(events, OrderCreated{
		OrderID:     o.ID,
		Number:      o.Number,
		TableNumber: o.TableNumber,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
	})
	for _, it := range o.Items {
		events = append(events, OrderItemCreated{
			ItemID:     it.ID,
			OrderID:    o.ID,
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			Timestamp:  o.CreatedAt,
		})
	}
	return events
}

// Notification returns the customer-facing message for a status change.
func (e OrderStatusChanged) Notification() string {
	switch e.NewStatus {
	case StatusPreparing:
		return "Your order is now being prepared"
	case StatusPrepared:
		return "Your order is ready to serve"
	case StatusCompleted:
		return "Your order has been completed. Enjoy your meal!"
	case StatusCancelled:
		return "Your order has been cancelled"
	default:
		return "Your order status changed to " + e.NewStatus.Label()
	}
}
