package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order represents a customer's table order
type Order struct {
	ID            uuid.UUID
	Number        int64
	TableNumber   int
	CustomerName  string
	CustomerPhone string
	Status        Status
	TotalAmount   decimal.Decimal
	Items         []OrderItem
	ItemsLoaded   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is an immutable line of an order. Name and UnitPrice are
// captured from the menu at submission time.
type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	LineTotal  decimal.Decimal
}

// NewOrder builds a pending order from cart lines, snapshotting name and price.
func NewOrder(tableNumber int, customer Customer, lines []CartLine, now time.Time) (*Order, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if tableNumber < 1 {
		return nil, &ValidationError{Field: "table_number", Message: "table number must be positive"}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order := &Order{
		ID:            uuid.New(),
		TableNumber:   tableNumber,
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		ItemsLoaded:   true,
	}

	order.Items = make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, &ValidationError{Field: "quantity", Message: "item quantity must be at least 1"}
		}
		order.Items = append(order.Items, NewOrderItem(order.ID, line.Item, line.Quantity))
	}

	order.CalculateTotal()
	return order, nil
}

func NewOrderItem(orderID uuid.UUID, item MenuItem, quantity int) OrderItem {
	return OrderItem{
		ID:         uuid.New(),
		OrderID:    orderID,
		MenuItemID: item.ID,
		Name:       item.Name,
		UnitPrice:  item.Price,
		Quantity:   quantity,
		LineTotal:  item.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// CalculateTotal sets TotalAmount to the sum of the line totals. It is
// only called while building a new order.
func (o *Order) CalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal)
	}
	o.TotalAmount = total
}

// Clone returns a deep copy safe to hand to readers.
func (o *Order) Clone() *Order {
	c := *o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return &c
}

// HasItem reports whether the loaded item list already contains id.
func (o *Order) HasItem(id uuid.UUID) bool {
	for _, it := range o.Items {
		if it.ID == id {
			return true
		}
	}
	return false
}

// OrderFilter selects orders from the store. Zero values mean "no constraint".
type OrderFilter struct {
	Since     *time.Time
	Statuses  []Status
	IDs       []uuid.UUID
	WithItems bool
}
