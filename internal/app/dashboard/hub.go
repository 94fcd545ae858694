package dashboard

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/app/feed"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type entry struct {
	rec    *Reconciler
	refs   int
	pinned bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Hub shares one reconciler per scope between all viewers of that scope.
type Hub struct {
	source interfaces.OrderReader
	router *feed.Router
	logger logger.Logger
	opts   Options

	ctx    context.Context
	stop   context.CancelFunc
	mu     sync.Mutex
	byKey  map[string]*entry
	closed bool
}

func NewHub(source interfaces.OrderReader, router *feed.Router, logger logger.Logger, opts Options) *Hub {
	ctx, stop := context.WithCancel(context.Background())
	return &Hub{
		source: source,
		router: router,
		logger: logger,
		opts:   opts,
		ctx:    ctx,
		stop:   stop,
		byKey:  make(map[string]*entry),
	}
}

// Acquire returns the running reconciler for scope, starting one if needed.
// The returned release func must be called once the caller is done.
func (h *Hub) Acquire(scope Scope) (*Reconciler, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := scope.Key()
	e, ok := h.byKey[key]
	if !ok {
		ctx, cancel := context.WithCancel(h.ctx)
		e = &entry{
			rec:    NewReconciler(scope, h.source, h.router, h.logger, h.opts),
			cancel: cancel,
			done:   make(chan struct{}),
		}
		h.byKey[key] = e

		go func() {
			defer close(e.done)
			_ = e.rec.Run(ctx)
		}()

		h.logger.Debug("dashboard_started", "Reconciler started", "", map[string]interface{}{"scope": key})
	}
	e.refs++

	var once sync.Once
	return e.rec, func() {
		once.Do(func() { h.release(key, e) })
	}
}

// Pin starts a reconciler that lives as long as the hub. Pinning the same
// scope again returns the running reconciler.
func (h *Hub) Pin(scope Scope) *Reconciler {
	h.mu.Lock()
	if e, ok := h.byKey[scope.Key()]; ok && e.pinned {
		h.mu.Unlock()
		return e.rec
	}
	h.mu.Unlock()

	rec, _ := h.Acquire(scope)

	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.byKey[scope.Key()]; ok && e.rec == rec {
		if e.pinned {
			// a concurrent Pin won; drop our extra reference
			e.refs--
		}
		e.pinned = true
	}
	return rec
}

func (h *Hub) release(key string, e *entry) {
	h.mu.Lock()
	e.refs--
	if e.refs > 0 || h.byKey[key] != e {
		h.mu.Unlock()
		return
	}
	delete(h.byKey, key)
	h.mu.Unlock()

	e.cancel()
	<-e.done
	h.logger.Debug("dashboard_stopped", "Reconciler stopped", "", map[string]interface{}{"scope": key})
}

// Len returns the number of running reconcilers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byKey)
}

// Close stops every reconciler and waits for them to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	entries := make([]*entry, 0, len(h.byKey))
	for _, e := range h.byKey {
		entries = append(entries, e)
	}
	h.byKey = make(map[string]*entry)
	h.mu.Unlock()

	h.stop()
	for _, e := range entries {
		<-e.done
	}
}
