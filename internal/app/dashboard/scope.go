package dashboard

import (
	"time"

	"github.com/YelzhanWeb/tableorder/internal/app/feed"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
)

// Scope defines which orders a dashboard materializes.
type Scope interface {
	Role() domain.ViewRole
	Key() string
	Predicate() feed.Predicate
	Filter(now time.Time) domain.OrderFilter
	// Admits is the membership rule applied after every patch.
	Admits(o *domain.Order, now time.Time) bool
	// Relevant reports whether an event about an order missing from the
	// view could concern this dashboard, i.e. whether it warrants a refetch.
	Relevant(ev domain.ChangeEvent, now time.Time) bool
	Summarize(orders []*domain.Order) *domain.Stats
	Period() domain.Period
}

var activeStatuses = []domain.Status{domain.StatusPending, domain.StatusPreparing, domain.StatusPrepared}

// KitchenScope holds every order the kitchen still has to act on.
type KitchenScope struct{}

func (KitchenScope) Role() domain.ViewRole    { return domain.ViewKitchen }
func (KitchenScope) Key() string              { return "kitchen" }
func (KitchenScope) Predicate() feed.Predicate { return nil }
func (KitchenScope) Period() domain.Period    { return "" }

func (KitchenScope) Filter(time.Time) domain.OrderFilter {
	return domain.OrderFilter{Statuses: activeStatuses, WithItems: true}
}

func (KitchenScope) Admits(o *domain.Order, _ time.Time) bool {
	return o.Status.Active()
}

func (KitchenScope) Relevant(ev domain.ChangeEvent, _ time.Time) bool {
	switch e := ev.(type) {
	case domain.OrderCreated:
		return e.Status.Active()
	case domain.OrderStatusChanged:
		return e.NewStatus.Active()
	default:
		return true
	}
}

func (KitchenScope) Summarize([]*domain.Order) *domain.Stats { return nil }

// CustomerScope follows exactly one order.
type CustomerScope struct {
	OrderID uuid.UUID
}

func (s CustomerScope) Role() domain.ViewRole    { return domain.ViewCustomer }
func (s CustomerScope) Key() string              { return "customer:" + s.OrderID.String() }
func (s CustomerScope) Predicate() feed.Predicate { return feed.ForOrder(s.OrderID) }
func (s CustomerScope) Period() domain.Period    { return "" }

func (s CustomerScope) Filter(time.Time) domain.OrderFilter {
	return domain.OrderFilter{IDs: []uuid.UUID{s.OrderID}, WithItems: true}
}

func (s CustomerScope) Admits(o *domain.Order, _ time.Time) bool {
	return o.ID == s.OrderID
}

func (s CustomerScope) Relevant(ev domain.ChangeEvent, _ time.Time) bool {
	return ev.Order() == s.OrderID
}

func (s CustomerScope) Summarize([]*domain.Order) *domain.Stats { return nil }

// AdminScope holds every order created inside the period's window,
// whatever its status.
type AdminScope struct {
	Window domain.Period
}

func (s AdminScope) Role() domain.ViewRole    { return domain.ViewAdmin }
func (s AdminScope) Key() string              { return "admin:" + string(s.Window) }
func (s AdminScope) Predicate() feed.Predicate { return nil }
func (s AdminScope) Period() domain.Period    { return s.Window }

func (s AdminScope) Filter(now time.Time) domain.OrderFilter {
	since := s.Window.Since(now)
	return domain.OrderFilter{Since: &since, WithItems: true}
}

func (s AdminScope) Admits(o *domain.Order, now time.Time) bool {
	return !o.CreatedAt.Before(s.Window.Since(now))
}

// Relevant admits only new orders inside the window. Any other event about
// an order the view lacks concerns an order created before the window, or
// one whose OrderCreated is still on its way and will refetch by itself.
func (s AdminScope) Relevant(ev domain.ChangeEvent, now time.Time) bool {
	e, ok := ev.(domain.OrderCreated)
	return ok && !e.CreatedAt.Before(s.Window.Since(now))
}

func (s AdminScope) Summarize(orders []*domain.Order) *domain.Stats {
	stats := domain.ComputeStats(orders)
	return &stats
}
