package http

import (
	"net/http"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registrar mounts a group of routes on the mux.
type Registrar func(mux *http.ServeMux)

func NewRouter(logger logger.Logger, routes ...Registrar) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	mux.Handle("GET /metrics", promhttp.Handler())

	for _, register := range routes {
		register(mux)
	}

	// Metrics must stay innermost to see the matched pattern.
	return Chain(mux, RecoveryMiddleware(logger), LoggingMiddleware(logger), MetricsMiddleware)
}
