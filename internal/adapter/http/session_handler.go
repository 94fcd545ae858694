package http

import (
	"net/http"
	"strings"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
)

const idempotencyHeader = "Idempotency-Key"

type SessionHandler struct {
	service interfaces.SessionService
	logger  logger.Logger
}

func NewSessionHandler(service interfaces.SessionService, logger logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

type OpenSessionRequest struct {
	TableNumber int `json:"table_number"`
}

type CustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type AddItemRequest struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
}

type UpdateQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.Open)
	mux.HandleFunc("GET /sessions/{id}", h.Get)
	mux.HandleFunc("DELETE /sessions/{id}", h.Close)
	mux.HandleFunc("PUT /sessions/{id}/customer", h.SetCustomer)
	mux.HandleFunc("POST /sessions/{id}/cart/items", h.AddItem)
	mux.HandleFunc("PATCH /sessions/{id}/cart/items/{itemId}", h.UpdateQuantity)
	mux.HandleFunc("DELETE /sessions/{id}/cart", h.ClearCart)
	mux.HandleFunc("POST /sessions/{id}/checkout", h.Checkout)
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if req.TableNumber < 1 || req.TableNumber > 100 {
		respondError(w, r, h.logger, &domain.ValidationError{Field: "table_number", Message: "table number must be between 1 and 100"})
		return
	}

	sess := h.service.Open(req.TableNumber)
	h.logger.Debug("session_opened", "Table session opened", requestIDFrom(r.Context()), map[string]interface{}{
		"session_id":   sess.ID,
		"table_number": sess.TableNumber,
	})
	writeJSON(w, http.StatusCreated, toSession(sess))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(id uuid.UUID) (*domain.Session, error) {
		return h.service.Get(id)
	})
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.service.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.withSession(w, r, func(id uuid.UUID) (*domain.Session, error) {
		return h.service.SetCustomer(id, domain.Customer{
			Name:  strings.TrimSpace(req.Name),
			Phone: strings.TrimSpace(req.Phone),
		})
	})
}

func (h *SessionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.withSession(w, r, func(id uuid.UUID) (*domain.Session, error) {
		return h.service.AddItem(r.Context(), id, req.MenuItemID)
	})
}

func (h *SessionHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req UpdateQuantityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.withSession(w, r, func(id uuid.UUID) (*domain.Session, error) {
		return h.service.UpdateQuantity(id, itemID, req.Delta)
	})
}

func (h *SessionHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(id uuid.UUID) (*domain.Session, error) {
		return h.service.Clear(id)
	})
}

func (h *SessionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	order, err := h.service.Checkout(r.Context(), id, r.Header.Get(idempotencyHeader))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(order))
}

func (h *SessionHandler) withSession(w http.ResponseWriter, r *http.Request, fn func(id uuid.UUID) (*domain.Session, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	sess, err := fn(id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess))
}
