package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Команды для сервисов
type SubmitOrderCommand struct {
	TableNumber int
	Customer    domain.Customer
	Lines       []domain.CartLine
}

type UpdateStatusCommand struct {
	OrderID   uuid.UUID
	Requested domain.Status
	Role      domain.Role
	ChangedBy string
}

type StatusUpdateResult struct {
	OrderID   uuid.UUID
	OldStatus domain.Status
	NewStatus domain.Status
	Applied   bool
	UpdatedAt time.Time
}

// Интерфейсы Сервисов (Business Logic)
type OrderService interface {
	Submit(ctx context.Context, cmd SubmitOrderCommand) (*domain.Order, error)
}

type SessionService interface {
	Open(tableNumber int) *domain.Session
	Get(id uuid.UUID) (*domain.Session, error)
	SetCustomer(id uuid.UUID, customer domain.Customer) (*domain.Session, error)
	AddItem(ctx context.Context, id, menuItemID uuid.UUID) (*domain.Session, error)
	UpdateQuantity(id, menuItemID uuid.UUID, delta int) (*domain.Session, error)
	Clear(id uuid.UUID) (*domain.Session, error)
	Checkout(ctx context.Context, id uuid.UUID, idempotencyKey string) (*domain.Order, error)
	Close(id uuid.UUID)
}

type StatusService interface {
	UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*StatusUpdateResult, error)
}

type TrackingService interface {
	Track(ctx context.Context, orderID uuid.UUID) (*TrackingOrderResponse, error)
	History(ctx context.Context, orderID uuid.UUID) ([]*domain.StatusLog, error)
}

type MenuService interface {
	Menu(ctx context.Context, q domain.MenuQuery) (*MenuResponse, error)
}

// ViewSource exposes a dashboard's current snapshot to the presentation layer.
type ViewSource interface {
	Snapshot() *domain.View
	// Updated returns a channel closed on the next published snapshot.
	Updated() <-chan struct{}
}

// TrackingOrderResponse is the customer-facing status of one order.
type TrackingOrderResponse struct {
	OrderID     uuid.UUID
	OrderNumber int64
	TableNumber int
	Status      domain.Status
	Label       string
	TotalAmount decimal.Decimal
	Items       []domain.OrderItem
	UpdatedAt   time.Time
}

type MenuResponse struct {
	Categories []*domain.Category
	Items      []*domain.MenuItem
}
