package http

import (
	"net/http"
	"strings"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
	"github.com/google/uuid"
)

type MenuHandler struct {
	service interfaces.MenuService
	logger  logger.Logger
}

func NewMenuHandler(service interfaces.MenuService, logger logger.Logger) *MenuHandler {
	return &MenuHandler{service: service, logger: logger}
}

func (h *MenuHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /menu", h.GetMenu)
}

// GetMenu lists available items, optionally narrowed by ?category= and ?q=.
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	q := domain.MenuQuery{Search: strings.TrimSpace(r.URL.Query().Get("q"))}
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, r, h.logger, &domain.ValidationError{Field: "category", Message: "must be a valid UUID"})
			return
		}
		q.CategoryID = &id
	}

	menu, err := h.service.Menu(r.Context(), q)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toMenu(menu))
}
