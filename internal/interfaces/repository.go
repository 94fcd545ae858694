package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
)

// Интерфейсы Репозиториев (Adapter/Postgres)
type OrderStore interface {
	OrderReader
	// InTx runs fn against a store bound to a single transaction.
	InTx(ctx context.Context, fn func(tx OrderWriter) error) error
	// UpdateStatus moves an order from `from` to `to` only if it still holds `from`.
	// It returns false when another writer got there first.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, changedBy string) (bool, time.Time, error)
}

type OrderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	StatusHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error)
}

type OrderWriter interface {
	// CreateOrder inserts the order row and fills in its sequential Number.
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateItems(ctx context.Context, items []domain.OrderItem) error
	LogStatus(ctx context.Context, orderID uuid.UUID, status domain.Status, changedBy string) error
}

type MenuRepository interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	ListAvailableItems(ctx context.Context, q domain.MenuQuery) ([]*domain.MenuItem, error)
	FindItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.MenuItem, error)
}

type StaffRepository interface {
	RoleByEmail(ctx context.Context, email string) (domain.Role, error)
}

// IdempotencyStore guards checkout against duplicate submissions.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	// Release drops a lock taken by TryLock whose work failed.
	Release(ctx context.Context, scope, key string) error
}
