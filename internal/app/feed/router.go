package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_delivered_total",
			Help: "Change events handed to subscribers",
		},
		[]string{"topic"},
	)

	subscriptionsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_subscriptions_dropped_total",
			Help: "Subscriptions ended by a delivery failure",
		},
		[]string{"reason"},
	)

	activeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_subscriptions_active",
		Help: "Currently registered subscriptions",
	})
)

// Predicate filters events within a topic. A nil Predicate accepts everything.
type Predicate func(domain.ChangeEvent) bool

// ForOrder accepts only events belonging to orderID.
func ForOrder(orderID uuid.UUID) Predicate {
	return func(ev domain.ChangeEvent) bool {
		return ev.Order() == orderID
	}
}

// Subscription is a live stream of change events for one topic.
type Subscription struct {
	id      uint64
	topic   domain.Topic
	match   Predicate
	events  chan domain.ChangeEvent
	done    chan struct{}
	once    sync.Once
	dropped atomic.Bool
}

func (s *Subscription) Events() <-chan domain.ChangeEvent { return s.events }

// Done is closed when the subscription ends, by Unsubscribe or by a drop.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns domain.ErrEventDelivery once the subscription was dropped.
func (s *Subscription) Err() error {
	if s.dropped.Load() {
		return domain.ErrEventDelivery
	}
	return nil
}

func (s *Subscription) Topic() domain.Topic { return s.topic }

func (s *Subscription) end(dropped bool) bool {
	ended := false
	s.once.Do(func() {
		s.dropped.Store(dropped)
		close(s.done)
		ended = true
	})
	return ended
}

// Router fans change events out to subscribers without ever blocking the
// publisher. A subscriber that cannot keep up is dropped and is expected to
// resubscribe and refetch.
type Router struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	logger logger.Logger
}

func NewRouter(buffer int, logger logger.Logger) *Router {
	if buffer < 1 {
		buffer = 1
	}
	return &Router{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

func (r *Router) Subscribe(topic domain.Topic, match Predicate) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &Subscription{
		id:     r.nextID,
		topic:  topic,
		match:  match,
		events: make(chan domain.ChangeEvent, r.buffer),
		done:   make(chan struct{}),
	}
	r.subs[sub.id] = sub
	activeSubscriptions.Inc()
	return sub
}

func (r *Router) Unsubscribe(sub *Subscription) {
	if r.remove(sub) {
		sub.end(false)
	}
}

// Publish delivers ev to every matching subscriber. It never waits.
func (r *Router) Publish(_ context.Context, ev domain.ChangeEvent) error {
	var slow []*Subscription

	r.mu.RLock()
	for _, sub := range r.subs {
		if sub.topic != ev.Topic() {
			continue
		}
		if sub.match != nil && !sub.match(ev) {
			continue
		}
		select {
		case sub.events <- ev:
			eventsDelivered.WithLabelValues(string(ev.Topic())).Inc()
		default:
			slow = append(slow, sub)
		}
	}
	r.mu.RUnlock()

	for _, sub := range slow {
		r.drop(sub, "slow_consumer")
	}
	return nil
}

// DropAll ends every subscription as a delivery failure. Called when the
// upstream transport loses its connection and events may have been missed.
func (r *Router) DropAll(reason string) {
	r.mu.RLock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		r.drop(sub, reason)
	}
}

func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Router) drop(sub *Subscription, reason string) {
	if !r.remove(sub) {
		return
	}
	if sub.end(true) {
		subscriptionsDropped.WithLabelValues(reason).Inc()
		r.logger.Debug("subscription_dropped", "Subscription dropped", "", map[string]interface{}{
			"topic":  sub.topic,
			"reason": reason,
		})
	}
}

func (r *Router) remove(sub *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.id]; !ok {
		return false
	}
	delete(r.subs, sub.id)
	activeSubscriptions.Dec()
	return true
}
