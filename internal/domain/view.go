package domain

import (
	"time"

	"github.com/google/uuid"
)

type ViewRole string

const (
	ViewCustomer ViewRole = "customer"
	ViewKitchen  ViewRole = "kitchen"
	ViewAdmin    ViewRole = "admin"
)

// View is an immutable snapshot of a dashboard's materialized orders.
// Readers must not modify it.
type View struct {
	Role     ViewRole
	Orders   []*Order
	Stats    *Stats
	Period   Period
	Version  uint64
	SyncedAt time.Time
}

func (v *View) Find(id uuid.UUID) (*Order, bool) {
	for _, o := range v.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Session is a customer's table session. Its cart is owned by the session
// and never shared.
type Session struct {
	ID          uuid.UUID
	TableNumber int
	Customer    *Customer
	Cart        Cart
	Orders      []uuid.UUID
	CreatedAt   time.Time
}
