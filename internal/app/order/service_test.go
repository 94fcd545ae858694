package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/YelzhanWeb/tableorder/internal/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	pizza = domain.MenuItem{ID: uuid.New(), Name: "Pepperoni", Price: decimal.NewFromInt(200), IsAvailable: true}
	salad = domain.MenuItem{ID: uuid.New(), Name: "Caesar", Price: decimal.NewFromInt(125), IsAvailable: true}

	ada = domain.Customer{Name: "Ada", Phone: "5551234567"}
)

func menuWith(items ...domain.MenuItem) *mocks.MockMenuRepository {
	m := new(mocks.MockMenuRepository)
	found := make(map[uuid.UUID]*domain.MenuItem, len(items))
	for i := range items {
		found[items[i].ID] = &items[i]
	}
	m.On("FindItems", mock.Anything, mock.Anything).Return(found, nil)
	return m
}

func newTestService(store interfaces.OrderStore, menu interfaces.MenuRepository, pub interfaces.ChangePublisher) *Service {
	s := NewService(store, menu, pub, logger.Nop())
	s.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestService_Submit(t *testing.T) {
	store := mocks.NewMemoryStore()
	pub := new(mocks.MockChangePublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, menuWith(pizza, salad), pub)

	order, err := svc.Submit(context.Background(), interfaces.SubmitOrderCommand{
		TableNumber: 7,
		Customer:    ada,
		Lines: []domain.CartLine{
			{Item: pizza, Quantity: 1},
			{Item: salad, Quantity: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, int64(1), order.Number)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(450)))
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, order.Items[1].LineTotal.Equal(decimal.NewFromInt(250)))

	stored, err := store.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.TableNumber)
	assert.Len(t, stored.Items, 2)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(450)))

	history, err := store.StatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusPending, history[0].Status)

	pub.AssertNumberOfCalls(t, "Publish", 3)
	pub.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		created, ok := ev.(domain.OrderCreated)
		return ok && created.OrderID == order.ID && created.Number == 1
	}))
}

func TestService_Submit_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     interfaces.SubmitOrderCommand
		wantErr string
	}{
		{
			name:    "empty cart",
			cmd:     interfaces.SubmitOrderCommand{TableNumber: 1, Customer: ada},
			wantErr: "cart",
		},
		{
			name: "short phone",
			cmd: interfaces.SubmitOrderCommand{
				TableNumber: 1,
				Customer:    domain.Customer{Name: "Ada", Phone: "12345"},
				Lines:       []domain.CartLine{{Item: pizza, Quantity: 1}},
			},
			wantErr: "customer_phone",
		},
		{
			name: "missing name",
			cmd: interfaces.SubmitOrderCommand{
				TableNumber: 1,
				Customer:    domain.Customer{Phone: "5551234567"},
				Lines:       []domain.CartLine{{Item: pizza, Quantity: 1}},
			},
			wantErr: "customer_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockOrderStore)
			menu := new(mocks.MockMenuRepository)
			pub := new(mocks.MockChangePublisher)

			svc := newTestService(store, menu, pub)
			_, err := svc.Submit(context.Background(), tt.cmd)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantErr, ve.Field)

			store.AssertNotCalled(t, "InTx", mock.Anything, mock.Anything)
			menu.AssertNotCalled(t, "FindItems", mock.Anything, mock.Anything)
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Submit_UnavailableItem(t *testing.T) {
	gone := salad
	gone.IsAvailable = false

	store := mocks.NewMemoryStore()
	pub := new(mocks.MockChangePublisher)
	svc := newTestService(store, menuWith(pizza, gone), pub)

	_, err := svc.Submit(context.Background(), interfaces.SubmitOrderCommand{
		TableNumber: 1,
		Customer:    ada,
		Lines:       []domain.CartLine{{Item: pizza, Quantity: 1}, {Item: salad, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrMenuItemNotFound)
	assert.Equal(t, 0, store.Len())
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_Submit_RetriesRolledBackItems(t *testing.T) {
	store := mocks.NewMemoryStore()
	store.FailItems = 1
	pub := new(mocks.MockChangePublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, menuWith(pizza), pub)
	order, err := svc.Submit(context.Background(), interfaces.SubmitOrderCommand{
		TableNumber: 2,
		Customer:    ada,
		Lines:       []domain.CartLine{{Item: pizza, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len(), "the failed attempt leaves no order behind")
	stored, err := store.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestService_Submit_PartialWriteSurfaces(t *testing.T) {
	store := mocks.NewMemoryStore()
	store.FailItems = 2
	pub := new(mocks.MockChangePublisher)

	svc := newTestService(store, menuWith(pizza), pub)
	_, err := svc.Submit(context.Background(), interfaces.SubmitOrderCommand{
		TableNumber: 2,
		Customer:    ada,
		Lines:       []domain.CartLine{{Item: pizza, Quantity: 1}},
	})

	var pw *domain.PartialWriteError
	require.ErrorAs(t, err, &pw)
	assert.True(t, pw.RolledBack)
	assert.ErrorIs(t, err, mocks.ErrInjected)
	assert.Equal(t, 0, store.Len())
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_Submit_PublishFailureKeepsOrder(t *testing.T) {
	store := mocks.NewMemoryStore()
	pub := new(mocks.MockChangePublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	svc := newTestService(store, menuWith(pizza), pub)
	order, err := svc.Submit(context.Background(), interfaces.SubmitOrderCommand{
		TableNumber: 3,
		Customer:    ada,
		Lines:       []domain.CartLine{{Item: pizza, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, 1, store.Len())
}

func TestService_Submit_CreateOrderFailure(t *testing.T) {
	writer := new(mocks.MockOrderWriter)
	writer.On("CreateOrder", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	store := new(mocks.MockOrderStore)
	store.On("InTx", mock.Anything, mock.Anything).Return(writer, nil)
	pub := new(mocks.MockChangePublisher)

	svc := newTestService(store, menuWith(pizza), pub)
	_, err := svc.Submit(context.Background(), interfaces.SubmitOrderCommand{
		TableNumber: 3,
		Customer:    ada,
		Lines:       []domain.CartLine{{Item: pizza, Quantity: 1}},
	})

	var pe *domain.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create_order", pe.Op)
	store.AssertNumberOfCalls(t, "InTx", 2)
	writer.AssertNotCalled(t, "CreateItems", mock.Anything, mock.Anything)
}
