package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/app/dashboard"
	"github.com/YelzhanWeb/tableorder/internal/app/report"
	"github.com/YelzhanWeb/tableorder/internal/domain"
)

const syncWait = 5 * time.Second

// DashboardHandler serves the kitchen and admin views from their pinned
// reconcilers. Reads never touch the database directly.
type DashboardHandler struct {
	hub    *dashboard.Hub
	authz  *Authz
	logger logger.Logger
	now    func() time.Time
}

func NewDashboardHandler(hub *dashboard.Hub, authz *Authz, logger logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		hub:    hub,
		authz:  authz,
		logger: logger,
		now:    time.Now,
	}
}

func (h *DashboardHandler) RegisterKitchen(mux *http.ServeMux) {
	mux.HandleFunc("GET /kitchen/orders", h.authz.Require(h.KitchenOrders, domain.RoleKitchen, domain.RoleAdmin))
}

func (h *DashboardHandler) RegisterAdmin(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/orders", h.authz.Require(h.AdminOrders, domain.RoleAdmin))
	mux.HandleFunc("GET /admin/stats", h.authz.Require(h.AdminStats, domain.RoleAdmin))
	mux.HandleFunc("GET /admin/report", h.authz.Require(h.AdminReport, domain.RoleAdmin))
}

func (h *DashboardHandler) KitchenOrders(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r, dashboard.KitchenScope{})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(view))
}

func (h *DashboardHandler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	view, err := h.adminView(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(view))
}

func (h *DashboardHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	view, err := h.adminView(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(view, h.now()).Stats)
}

func (h *DashboardHandler) AdminReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	view, err := h.adminView(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	now := h.now()
	body, err := report.Encode(report.Build(view, now), format)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	filename := fmt.Sprintf("report-%s-%s.%s", view.Period, now.Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *DashboardHandler) adminView(r *http.Request) (*domain.View, error) {
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return nil, err
	}
	return h.view(r, dashboard.AdminScope{Window: period})
}

// view returns the scope's current snapshot, waiting for the first sync
// when the reconciler has just been started.
func (h *DashboardHandler) view(r *http.Request, scope dashboard.Scope) (*domain.View, error) {
	rec := h.hub.Pin(scope)
	if v := rec.Snapshot(); v.Version > 0 {
		return v, nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), syncWait)
	defer cancel()
	v, err := rec.WaitSynced(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "sync_view", Err: err}
	}
	return v, nil
}
