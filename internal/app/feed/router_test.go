package feed

import (
	"context"
	"testing"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusChanged(orderID uuid.UUID, to domain.Status) domain.ChangeEvent {
	return domain.OrderStatusChanged{OrderID: orderID, OldStatus: domain.StatusPending, NewStatus: to, Timestamp: time.Now()}
}

func receive(t *testing.T, sub *Subscription) domain.ChangeEvent {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestRouter_TopicAndPredicate(t *testing.T) {
	r := NewRouter(8, logger.Nop())
	target := uuid.New()

	kitchen := r.Subscribe(domain.TopicOrders, nil)
	items := r.Subscribe(domain.TopicOrderItems, nil)
	customer := r.Subscribe(domain.TopicOrders, ForOrder(target))

	require.NoError(t, r.Publish(context.Background(), statusChanged(uuid.New(), domain.StatusPreparing)))
	require.NoError(t, r.Publish(context.Background(), statusChanged(target, domain.StatusPreparing)))

	assert.Len(t, kitchen.Events(), 2)
	assert.Len(t, items.Events(), 0)
	require.Len(t, customer.Events(), 1)
	assert.Equal(t, target, receive(t, customer).Order())
}

func TestRouter_Unsubscribe(t *testing.T) {
	r := NewRouter(8, logger.Nop())
	sub := r.Subscribe(domain.TopicOrders, nil)
	require.Equal(t, 1, r.Len())

	r.Unsubscribe(sub)
	r.Unsubscribe(sub)

	assert.Equal(t, 0, r.Len())
	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription not ended")
	}
	assert.NoError(t, sub.Err(), "unsubscribe is not a delivery failure")

	require.NoError(t, r.Publish(context.Background(), statusChanged(uuid.New(), domain.StatusPreparing)))
	assert.Len(t, sub.Events(), 0)
}

func TestRouter_SlowSubscriberIsDroppedNotAwaited(t *testing.T) {
	r := NewRouter(2, logger.Nop())
	slow := r.Subscribe(domain.TopicOrders, nil)
	fast := r.Subscribe(domain.TopicOrders, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			_ = r.Publish(context.Background(), statusChanged(uuid.New(), domain.StatusPreparing))
			<-fast.Events()
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	<-slow.Done()
	assert.ErrorIs(t, slow.Err(), domain.ErrEventDelivery)
	assert.NoError(t, fast.Err())
	assert.Equal(t, 1, r.Len())
}

func TestRouter_DropAll(t *testing.T) {
	r := NewRouter(4, logger.Nop())
	a := r.Subscribe(domain.TopicOrders, nil)
	b := r.Subscribe(domain.TopicOrderItems, nil)

	r.DropAll("upstream_lost")

	for _, sub := range []*Subscription{a, b} {
		<-sub.Done()
		assert.ErrorIs(t, sub.Err(), domain.ErrEventDelivery)
	}
	assert.Equal(t, 0, r.Len())
}
