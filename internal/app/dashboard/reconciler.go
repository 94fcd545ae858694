package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/app/feed"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_refetches_total",
			Help: "Full view refetches started",
		},
		[]string{"role"},
	)

	refetchesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_refetches_discarded_total",
			Help: "Refetch results dropped because a newer sync superseded them",
		},
		[]string{"role"},
	)

	patchesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_patches_applied_total",
			Help: "Change events applied in place",
		},
		[]string{"role"},
	)
)

const (
	maxBuffered  = 1024
	retryBackoff = 2 * time.Second
)

type Options struct {
	RefetchTimeout time.Duration
	Now            func() time.Time
}

type fetchResult struct {
	epoch  uint64
	orders []*domain.Order
	err    error
}

// Reconciler keeps one dashboard's view consistent with the order store.
// The Run goroutine is the only writer; Snapshot is safe for any reader.
type Reconciler struct {
	scope   Scope
	source  interfaces.OrderReader
	router  *feed.Router
	logger  logger.Logger
	timeout time.Duration
	now     func() time.Time

	view    atomic.Pointer[domain.View]
	mu      sync.Mutex
	updated chan struct{}

	refresh chan struct{}
	results chan fetchResult
	fetches atomic.Int64

	// owned by Run
	orders    map[uuid.UUID]*domain.Order
	version   uint64
	epoch     uint64
	inflight  bool
	again     bool
	resyncing bool
	buffered  []domain.ChangeEvent
}

func NewReconciler(scope Scope, source interfaces.OrderReader, router *feed.Router, logger logger.Logger, opts Options) *Reconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefetchTimeout <= 0 {
		opts.RefetchTimeout = 10 * time.Second
	}

	r := &Reconciler{
		scope:   scope,
		source:  source,
		router:  router,
		logger:  logger,
		timeout: opts.RefetchTimeout,
		now:     opts.Now,
		updated: make(chan struct{}),
		refresh: make(chan struct{}, 1),
		results: make(chan fetchResult, 1),
		orders:  make(map[uuid.UUID]*domain.Order),
	}
	r.view.Store(&domain.View{Role: scope.Role(), Period: scope.Period()})
	return r
}

func (r *Reconciler) Scope() Scope { return r.scope }

func (r *Reconciler) Snapshot() *domain.View { return r.view.Load() }

func (r *Reconciler) Updated() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updated
}

// Fetches returns how many full refetches have been started.
func (r *Reconciler) Fetches() int64 { return r.fetches.Load() }

// Refresh asks for a full refetch. Requests made while one is in flight
// collapse into a single follow-up fetch.
func (r *Reconciler) Refresh() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

// WaitSynced blocks until the first snapshot has been published.
func (r *Reconciler) WaitSynced(ctx context.Context) (*domain.View, error) {
	for {
		ch := r.Updated()
		if v := r.Snapshot(); v.Version > 0 {
			return v, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Run subscribes, syncs and applies events until ctx ends. A dropped
// subscription is replaced and followed by exactly one full refetch.
func (r *Reconciler) Run(ctx context.Context) error {
	role := string(r.scope.Role())
	for {
		orders := r.router.Subscribe(domain.TopicOrders, r.scope.Predicate())
		items := r.router.Subscribe(domain.TopicOrderItems, r.scope.Predicate())

		r.resync(ctx)
		err := r.consume(ctx, orders, items)

		r.router.Unsubscribe(orders)
		r.router.Unsubscribe(items)

		if ctx.Err() != nil {
			return nil
		}
		r.logger.Info("dashboard_resubscribe", "Subscription lost, resyncing", "", map[string]interface{}{
			"role":  role,
			"scope": r.scope.Key(),
			"error": err.Error(),
		})
	}
}

func (r *Reconciler) consume(ctx context.Context, orders, items *feed.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-orders.Done():
			return fmt.Errorf("orders topic: %w", subscriptionErr(orders))
		case <-items.Done():
			return fmt.Errorf("order_items topic: %w", subscriptionErr(items))
		case ev := <-orders.Events():
			r.handle(ctx, ev)
		case ev := <-items.Events():
			r.handle(ctx, ev)
		case res := <-r.results:
			r.complete(ctx, res)
		case <-r.refresh:
			r.requestFetch(ctx)
		}
	}
}

func subscriptionErr(sub *feed.Subscription) error {
	if err := sub.Err(); err != nil {
		return err
	}
	return domain.ErrEventDelivery
}

// resync starts a new epoch. Results of older fetches are discarded and
// events are held back until the new snapshot lands.
func (r *Reconciler) resync(ctx context.Context) {
	r.epoch++
	r.resyncing = true
	r.buffered = nil
	r.again = false
	r.requestFetch(ctx)
}

func (r *Reconciler) requestFetch(ctx context.Context) {
	if r.inflight {
		r.again = true
		return
	}
	r.startFetch(ctx)
}

func (r *Reconciler) startFetch(ctx context.Context) {
	r.inflight = true
	r.fetches.Add(1)
	refetchesTotal.WithLabelValues(string(r.scope.Role())).Inc()

	epoch := r.epoch
	filter := r.scope.Filter(r.now())

	go func() {
		fctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		orders, err := r.source.ListOrders(fctx, filter)
		select {
		case r.results <- fetchResult{epoch: epoch, orders: orders, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (r *Reconciler) complete(ctx context.Context, res fetchResult) {
	r.inflight = false

	switch {
	case res.epoch != r.epoch:
		refetchesDiscarded.WithLabelValues(string(r.scope.Role())).Inc()
		r.again = true

	case res.err != nil:
		r.logger.Error("dashboard_refetch_failed", "Failed to refetch dashboard view", "", map[string]interface{}{
			"scope": r.scope.Key(),
		}, res.err)
		if !errors.Is(res.err, context.Canceled) {
			time.AfterFunc(retryBackoff, r.Refresh)
		}

	default:
		r.replace(res.orders)
		r.resyncing = false

		pending := r.buffered
		r.buffered = nil
		for _, ev := range pending {
			if _, needFetch := r.apply(ev); needFetch {
				r.again = true
			}
		}
		r.publish()
	}

	if r.again {
		r.again = false
		r.startFetch(ctx)
	}
}

func (r *Reconciler) handle(ctx context.Context, ev domain.ChangeEvent) {
	if r.inflight || r.resyncing {
		if len(r.buffered) >= maxBuffered {
			r.buffered = nil
			r.again = true
			return
		}
		r.buffered = append(r.buffered, ev)
		return
	}

	changed, needFetch := r.apply(ev)
	if changed {
		r.publish()
	}
	if needFetch {
		r.requestFetch(ctx)
	}
}

// apply patches the view in place when the event carries enough data.
// It reports whether the view changed and whether a refetch is required.
func (r *Reconciler) apply(ev domain.ChangeEvent) (changed bool, needFetch bool) {
	now := r.now()

	switch e := ev.(type) {
	case domain.OrderCreated:
		if _, ok := r.orders[e.OrderID]; ok {
			return false, false
		}
		return false, r.scope.Relevant(ev, now)

	case domain.OrderStatusChanged:
		current, ok := r.orders[e.OrderID]
		if !ok {
			return false, r.scope.Relevant(ev, now)
		}
		if current.Status == e.NewStatus || !e.NewStatus.Supersedes(current.Status) {
			return false, false
		}
		patched := current.Clone()
		patched.Status = e.NewStatus
		if e.Timestamp.After(patched.UpdatedAt) {
			patched.UpdatedAt = e.Timestamp
		}
		if r.scope.Admits(patched, now) {
			r.orders[e.OrderID] = patched
		} else {
			delete(r.orders, e.OrderID)
		}
		patchesApplied.WithLabelValues(string(r.scope.Role())).Inc()
		return true, false

	case domain.OrderItemCreated:
		current, ok := r.orders[e.OrderID]
		if !ok {
			return false, r.scope.Relevant(ev, now)
		}
		if !current.ItemsLoaded {
			return false, true
		}
		if current.HasItem(e.ItemID) {
			return false, false
		}
		patched := current.Clone()
		patched.Items = append(patched.Items, e.Item())
		r.orders[e.OrderID] = patched
		patchesApplied.WithLabelValues(string(r.scope.Role())).Inc()
		return true, false
	}

	return false, false
}

func (r *Reconciler) replace(orders []*domain.Order) {
	now := r.now()
	next := make(map[uuid.UUID]*domain.Order, len(orders))
	for _, o := range orders {
		if r.scope.Admits(o, now) {
			next[o.ID] = o
		}
	}
	r.orders = next
}

func (r *Reconciler) publish() {
	orders := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].Number < orders[j].Number
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	r.version++
	r.view.Store(&domain.View{
		Role:     r.scope.Role(),
		Orders:   orders,
		Stats:    r.scope.Summarize(orders),
		Period:   r.scope.Period(),
		Version:  r.version,
		SyncedAt: r.now(),
	})

	r.mu.Lock()
	close(r.updated)
	r.updated = make(chan struct{})
	r.mu.Unlock()
}
