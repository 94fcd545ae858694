package mocks

import (
	"context"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderStore struct {
	mock.Mock
}

type MockOrderWriter struct {
	mock.Mock
}

type MockChangePublisher struct {
	mock.Mock
}

type MockIdempotencyStore struct {
	mock.Mock
}

type MockMenuRepository struct {
	mock.Mock
}

type MockStaffRepository struct {
	mock.Mock
}

type MockOrderService struct {
	mock.Mock
}

// InTx hands the registered MockOrderWriter (argument 1 of Return) to fn.
func (m *MockOrderStore) InTx(ctx context.Context, fn func(tx interfaces.OrderWriter) error) error {
	args := m.Called(ctx, fn)
	if w, ok := args.Get(0).(interfaces.OrderWriter); ok {
		return fn(w)
	}
	return args.Error(1)
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, changedBy string) (bool, time.Time, error) {
	args := m.Called(ctx, id, from, to, changedBy)
	return args.Bool(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderStore) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrderStore) StatusHistory(ctx context.Context, id uuid.UUID) ([]*domain.StatusLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StatusLog), args.Error(1)
}

func (m *MockOrderWriter) CreateOrder(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderWriter) CreateItems(ctx context.Context, items []domain.OrderItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockOrderWriter) LogStatus(ctx context.Context, orderID uuid.UUID, status domain.Status, changedBy string) error {
	args := m.Called(ctx, orderID, status, changedBy)
	return args.Error(0)
}

func (m *MockChangePublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	args := m.Called(ctx, scope, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Remember(ctx context.Context, scope, key, value string) error {
	args := m.Called(ctx, scope, key, value)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	args := m.Called(ctx, scope, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	args := m.Called(ctx, scope, key)
	return args.Error(0)
}

func (m *MockMenuRepository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Category), args.Error(1)
}

func (m *MockMenuRepository) ListAvailableItems(ctx context.Context, q domain.MenuQuery) ([]*domain.MenuItem, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MenuItem), args.Error(1)
}

func (m *MockMenuRepository) FindItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.MenuItem, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*domain.MenuItem), args.Error(1)
}

func (m *MockStaffRepository) RoleByEmail(ctx context.Context, email string) (domain.Role, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.Role), args.Error(1)
}

func (m *MockOrderService) Submit(ctx context.Context, cmd interfaces.SubmitOrderCommand) (*domain.Order, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
