package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/app/feed"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/YelzhanWeb/tableorder/internal/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type fixture struct {
	store  *mocks.MemoryStore
	router *feed.Router
}

func newFixture() *fixture {
	store := mocks.NewMemoryStore()
	store.Now = clock
	return &fixture{store: store, router: feed.NewRouter(64, logger.Nop())}
}

func (f *fixture) start(t *testing.T, scope Scope) *Reconciler {
	t.Helper()
	return f.startFrom(t, scope, f.store)
}

func (f *fixture) startFrom(t *testing.T, scope Scope, source interfaces.OrderReader) *Reconciler {
	t.Helper()

	rec := NewReconciler(scope, source, f.router, logger.Nop(), Options{Now: clock, RefetchTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rec.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer wcancel()
	_, err := rec.WaitSynced(wctx)
	require.NoError(t, err)
	return rec
}

func (f *fixture) publish(t *testing.T, ev domain.ChangeEvent) {
	t.Helper()
	require.NoError(t, f.router.Publish(context.Background(), ev))
}

// seed stores an order with a single item and returns it.
func (f *fixture) seed(status domain.Status, createdAt time.Time) *domain.Order {
	id := uuid.New()
	price := decimal.NewFromInt(150)
	o := &domain.Order{
		ID:            id,
		TableNumber:   4,
		CustomerName:  "Ada",
		CustomerPhone: "5551234567",
		Status:        status,
		TotalAmount:   price.Mul(decimal.NewFromInt(2)),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
		Items: []domain.OrderItem{{
			ID:         uuid.New(),
			OrderID:    id,
			MenuItemID: uuid.New(),
			Name:       "Margherita",
			UnitPrice:  price,
			Quantity:   2,
			LineTotal:  price.Mul(decimal.NewFromInt(2)),
		}},
	}
	f.store.Put(o)
	return o
}

func (f *fixture) advance(t *testing.T, o *domain.Order, to domain.Status) domain.OrderStatusChanged {
	t.Helper()
	current, err := f.store.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	f.store.SetStatus(o.ID, to)
	return domain.OrderStatusChanged{OrderID: o.ID, OldStatus: current.Status, NewStatus: to, ChangedBy: "kitchen", Timestamp: testNow}
}

func waitFor(t *testing.T, rec *Reconciler, cond func(*domain.View) bool) *domain.View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		ch := rec.Updated()
		if v := rec.Snapshot(); v.Version > 0 && cond(v) {
			return v
		}
		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("view never reached expected state, last: %+v", rec.Snapshot())
			return nil
		}
	}
}

func statusOf(id uuid.UUID, want domain.Status) func(*domain.View) bool {
	return func(v *domain.View) bool {
		o, ok := v.Find(id)
		return ok && o.Status == want
	}
}

func absent(id uuid.UUID) func(*domain.View) bool {
	return func(v *domain.View) bool {
		_, ok := v.Find(id)
		return !ok
	}
}

func TestReconciler_InitialSync(t *testing.T) {
	f := newFixture()
	first := f.seed(domain.StatusPending, testNow.Add(-2*time.Hour))
	second := f.seed(domain.StatusPreparing, testNow.Add(-time.Hour))
	f.seed(domain.StatusCompleted, testNow.Add(-30*time.Minute))

	rec := f.start(t, KitchenScope{})

	v := rec.Snapshot()
	require.Len(t, v.Orders, 2)
	assert.Equal(t, first.ID, v.Orders[0].ID, "oldest order first")
	assert.Equal(t, second.ID, v.Orders[1].ID)
	assert.True(t, v.Orders[0].ItemsLoaded)
	assert.Len(t, v.Orders[0].Items, 1)
	assert.Nil(t, v.Stats)
	assert.Equal(t, int64(1), rec.Fetches())
}

func TestReconciler_AppliesStatusChangeInPlace(t *testing.T) {
	f := newFixture()
	o := f.seed(domain.StatusPending, testNow.Add(-time.Hour))
	rec := f.start(t, KitchenScope{})
	before := rec.Snapshot()

	f.publish(t, f.advance(t, o, domain.StatusPreparing))

	v := waitFor(t, rec, statusOf(o.ID, domain.StatusPreparing))
	assert.Equal(t, int64(1), rec.Fetches(), "patch must not refetch")

	old, ok := before.Find(o.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, old.Status, "published snapshots are immutable")
	assert.Greater(t, v.Version, before.Version)
}

func TestReconciler_DuplicateEventsAreIdempotent(t *testing.T) {
	f := newFixture()
	o := f.seed(domain.StatusPending, testNow.Add(-time.Hour))
	sentinel := f.seed(domain.StatusPending, testNow.Add(-time.Minute))
	rec := f.start(t, KitchenScope{})
	start := rec.Snapshot().Version

	ev := f.advance(t, o, domain.StatusPreparing)
	f.publish(t, ev)
	f.publish(t, ev)

	item := o.Items[0]
	f.publish(t, domain.OrderItemCreated{
		ItemID: item.ID, OrderID: o.ID, MenuItemID: item.MenuItemID,
		Name: item.Name, UnitPrice: item.UnitPrice, Quantity: item.Quantity, Timestamp: testNow,
	})

	f.publish(t, f.advance(t, sentinel, domain.StatusPreparing))
	v := waitFor(t, rec, statusOf(sentinel.ID, domain.StatusPreparing))

	assert.Equal(t, start+2, v.Version, "only the first status event and the sentinel change the view")
	got, ok := v.Find(o.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPreparing, got.Status)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, int64(1), rec.Fetches())
}

func TestReconciler_StaleRegressionIgnored(t *testing.T) {
	f := newFixture()
	o := f.seed(domain.StatusPrepared, testNow.Add(-time.Hour))
	sentinel := f.seed(domain.StatusPending, testNow.Add(-time.Minute))
	rec := f.start(t, KitchenScope{})

	f.publish(t, domain.OrderStatusChanged{OrderID: o.ID, OldStatus: domain.StatusPending, NewStatus: domain.StatusPreparing, Timestamp: testNow})
	f.publish(t, f.advance(t, sentinel, domain.StatusPreparing))

	v := waitFor(t, rec, statusOf(sentinel.ID, domain.StatusPreparing))
	got, ok := v.Find(o.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPrepared, got.Status)
}

func TestReconciler_MembershipFollowsStatus(t *testing.T) {
	f := newFixture()
	o := f.seed(domain.StatusPrepared, testNow.Add(-time.Hour))

	kitchen := f.start(t, KitchenScope{})
	admin := f.start(t, AdminScope{Window: domain.PeriodToday})

	_, ok := kitchen.Snapshot().Find(o.ID)
	require.True(t, ok)

	f.publish(t, f.advance(t, o, domain.StatusCompleted))

	waitFor(t, kitchen, absent(o.ID))
	v := waitFor(t, admin, statusOf(o.ID, domain.StatusCompleted))

	require.NotNil(t, v.Stats)
	assert.Equal(t, 1, v.Stats.CompletedOrders)
	assert.True(t, v.Stats.TotalRevenue.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, domain.PeriodToday, v.Period)
}

func TestReconciler_CreatedEventTriggersRefetch(t *testing.T) {
	f := newFixture()
	rec := f.start(t, KitchenScope{})
	assert.Empty(t, rec.Snapshot().Orders)

	o := f.seed(domain.StatusPending, testNow.Add(-time.Minute))
	for _, ev := range domain.CreationEvents(o) {
		f.publish(t, ev)
	}

	v := waitFor(t, rec, statusOf(o.ID, domain.StatusPending))
	got, _ := v.Find(o.ID)
	assert.Len(t, got.Items, 1)
	assert.LessOrEqual(t, rec.Fetches(), int64(3))
}

func TestReconciler_CustomerScopeIgnoresOtherOrders(t *testing.T) {
	f := newFixture()
	mine := f.seed(domain.StatusPending, testNow.Add(-time.Hour))
	other := f.seed(domain.StatusPending, testNow.Add(-time.Hour))

	rec := f.start(t, CustomerScope{OrderID: mine.ID})
	require.Len(t, rec.Snapshot().Orders, 1)

	f.publish(t, f.advance(t, other, domain.StatusPreparing))
	f.publish(t, f.advance(t, mine, domain.StatusCancelled))

	v := waitFor(t, rec, statusOf(mine.ID, domain.StatusCancelled))
	require.Len(t, v.Orders, 1)
	assert.Equal(t, int64(1), rec.Fetches())
}

func TestReconciler_ReconnectRefetchesOnce(t *testing.T) {
	f := newFixture()
	orders := []*domain.Order{
		f.seed(domain.StatusPending, testNow.Add(-3*time.Hour)),
		f.seed(domain.StatusPending, testNow.Add(-2*time.Hour)),
		f.seed(domain.StatusPreparing, testNow.Add(-time.Hour)),
	}
	rec := f.start(t, KitchenScope{})

	// Changes made while the upstream is down are never delivered.
	f.store.SetStatus(orders[0].ID, domain.StatusPreparing)
	f.store.SetStatus(orders[1].ID, domain.StatusCancelled)
	f.store.SetStatus(orders[2].ID, domain.StatusPrepared)

	f.router.DropAll("upstream_lost")

	v := waitFor(t, rec, func(v *domain.View) bool {
		return len(v.Orders) == 2 && statusOf(orders[0].ID, domain.StatusPreparing)(v) && statusOf(orders[2].ID, domain.StatusPrepared)(v)
	})
	assert.True(t, absent(orders[1].ID)(v))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(2), rec.Fetches())
	assert.Equal(t, 2, f.router.Len(), "resubscribed to both topics")
}

func TestReconciler_RefetchesAreCoalesced(t *testing.T) {
	f := newFixture()
	f.seed(domain.StatusPending, testNow.Add(-time.Hour))

	var (
		gated      atomic.Bool
		running    atomic.Int32
		maxRunning atomic.Int32
		entered    = make(chan struct{}, 8)
		release    = make(chan struct{})
	)
	f.store.BeforeList = func(ctx context.Context) error {
		if !gated.Load() {
			return nil
		}
		n := running.Add(1)
		defer running.Add(-1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		entered <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rec := f.start(t, KitchenScope{})
	gated.Store(true)

	rec.Refresh()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("refetch never started")
	}

	for i := 0; i < 5; i++ {
		rec.Refresh()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.Eventually(t, func() bool { return rec.Fetches() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int64(3), rec.Fetches(), "one in flight plus a single follow-up")
	assert.Equal(t, int32(1), maxRunning.Load())
}

// heldReader reads from the store first and then blocks while held, so the
// result it eventually returns is already out of date.
type heldReader struct {
	*mocks.MemoryStore
	hold    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (h *heldReader) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	orders, err := h.MemoryStore.ListOrders(ctx, filter)
	if !h.hold.Load() {
		return orders, err
	}
	h.entered <- struct{}{}
	select {
	case <-h.release:
		return orders, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestReconciler_SupersededRefetchIsDiscarded(t *testing.T) {
	f := newFixture()
	order := f.seed(domain.StatusPending, testNow.Add(-time.Hour))
	reader := &heldReader{MemoryStore: f.store, entered: make(chan struct{}, 1), release: make(chan struct{})}

	rec := f.startFrom(t, KitchenScope{}, reader)
	synced := rec.Snapshot().Version

	reader.hold.Store(true)
	rec.Refresh()
	select {
	case <-reader.entered:
	case <-time.After(time.Second):
		t.Fatal("refetch never started")
	}

	// The held fetch saw "pending"; the store moves on and the feed drops.
	f.store.SetStatus(order.ID, domain.StatusPreparing)
	f.router.DropAll("upstream_lost")
	require.Eventually(t, func() bool { return f.router.Len() == 2 }, time.Second, 5*time.Millisecond)

	reader.hold.Store(false)
	close(reader.release)

	v := waitFor(t, rec, statusOf(order.ID, domain.StatusPreparing))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, synced+1, v.Version, "the stale result is never published")
	assert.Equal(t, v.Version, rec.Snapshot().Version)
	assert.Equal(t, int64(3), rec.Fetches(), "initial, superseded, and one replacement")

	stored, err := f.store.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	got, ok := rec.Snapshot().Find(order.ID)
	require.True(t, ok)
	assert.Equal(t, stored.Status, got.Status)
}

func TestHub_SharesReconcilerPerScope(t *testing.T) {
	f := newFixture()
	hub := NewHub(f.store, f.router, logger.Nop(), Options{Now: clock})
	defer hub.Close()

	id := uuid.New()
	a, releaseA := hub.Acquire(CustomerScope{OrderID: id})
	b, releaseB := hub.Acquire(CustomerScope{OrderID: id})
	kitchen := hub.Pin(KitchenScope{})

	assert.Same(t, a, b)
	assert.NotSame(t, a, kitchen)
	assert.Equal(t, 2, hub.Len())

	releaseA()
	releaseA()
	assert.Equal(t, 2, hub.Len())

	releaseB()
	assert.Equal(t, 1, hub.Len())

	c, releaseC := hub.Acquire(CustomerScope{OrderID: id})
	defer releaseC()
	assert.NotSame(t, a, c)

	assert.Same(t, kitchen, hub.Pin(KitchenScope{}))
	_, releaseK := hub.Acquire(KitchenScope{})
	releaseK()
	assert.Equal(t, 2, hub.Len(), "pinned reconcilers outlive their viewers")
}
