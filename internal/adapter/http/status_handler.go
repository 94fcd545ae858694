package http

import (
	"errors"
	"net/http"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type StatusHandler struct {
	service interfaces.StatusService
	authz   *Authz
	logger  logger.Logger
}

func NewStatusHandler(service interfaces.StatusService, authz *Authz, logger logger.Logger) *StatusHandler {
	return &StatusHandler{
		service: service,
		authz:   authz,
		logger:  logger,
	}
}

type UpdateStatusRequest struct {
	Status domain.Status `json:"status"`
}

// Register exposes the transition endpoint. Any authenticated actor reaches
// the validator; the role decides what it may request.
func (h *StatusHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PATCH /orders/{id}/status", h.authz.Require(h.UpdateStatus))
}

func (h *StatusHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req UpdateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	actor, _ := ActorFrom(r.Context())
	if actor.Role == "" {
		actor.Role = domain.RoleNone
	}

	result, err := h.service.UpdateStatus(r.Context(), interfaces.UpdateStatusCommand{
		OrderID:   id,
		Requested: req.Status,
		Role:      actor.Role,
		ChangedBy: actor.Email,
	})
	if errors.Is(err, domain.ErrStaleApplication) && result != nil {
		writeJSON(w, http.StatusConflict, StatusResponse{
			OrderID:   result.OrderID,
			OldStatus: result.OldStatus,
			Status:    result.NewStatus,
			Applied:   false,
			UpdatedAt: result.UpdatedAt,
		})
		return
	}
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("status_changed", "Order status changed", requestIDFrom(r.Context()), map[string]interface{}{
		"order_id":   result.OrderID,
		"old_status": result.OldStatus,
		"new_status": result.NewStatus,
		"changed_by": actor.Email,
	})
	writeJSON(w, http.StatusOK, StatusResponse{
		OrderID:   result.OrderID,
		OldStatus: result.OldStatus,
		Status:    result.NewStatus,
		Applied:   true,
		UpdatedAt: result.UpdatedAt,
	})
}
