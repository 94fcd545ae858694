package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/app/dashboard"
	"github.com/YelzhanWeb/tableorder/internal/app/tracking"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// TrackingHandler serves the customer status page.
type TrackingHandler struct {
	service interfaces.TrackingService
	hub     *dashboard.Hub
	logger  logger.Logger
}

func NewTrackingHandler(service interfaces.TrackingService, hub *dashboard.Hub, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

func (h *TrackingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /orders/{id}/history", h.GetHistory)
	mux.HandleFunc("GET /orders/{id}/events", h.StreamOrder)
}

func (h *TrackingHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.service.Track(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTracking(result))
}

func (h *TrackingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	history, err := h.service.History(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := make([]HistoryEntry, len(history))
	for i, log := range history {
		resp[i] = HistoryEntry{
			Status:    log.Status,
			ChangedBy: log.ChangedBy,
			ChangedAt: log.ChangedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// StreamOrder pushes the customer view of one order as server-sent events
// until the order reaches a terminal status or the client goes away.
func (h *TrackingHandler) StreamOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if _, err := h.service.Track(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	rec, release := h.hub.Acquire(dashboard.CustomerScope{OrderID: id})
	defer release()

	ctx := r.Context()
	if _, err := rec.WaitSynced(ctx); err != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var lastVersion uint64
	for {
		updated := rec.Updated()
		view := rec.Snapshot()

		if view.Version != lastVersion {
			lastVersion = view.Version
			order, ok := view.Find(id)
			if !ok {
				continue
			}
			payload, err := json.Marshal(toTracking(tracking.Response(order)))
			if err != nil {
				h.logger.Error("sse_encode_failed", "Failed to encode order snapshot", requestIDFrom(ctx), nil, err)
				return
			}
			fmt.Fprintf(w, "id: %d\nevent: order\ndata: %s\n\n", view.Version, payload)
			flusher.Flush()

			if order.Status.Terminal() {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-updated:
		}
	}
}
