package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Applied *bool  `json:"applied,omitempty"`
}

func loggerCtx(r *http.Request) context.Context {
	return logger.WithRequestID(r.Context(), r.Header.Get(requestIDHeader))
}

func requestIDFrom(ctx context.Context) string {
	return logger.RequestID(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		te *domain.TransitionError
		ve *domain.ValidationError
		pe *domain.PersistenceError
		pw *domain.PartialWriteError
	)
	switch {
	case errors.As(err, &te):
		if te.Unauthorized() {
			return http.StatusForbidden
		}
		return http.StatusBadRequest
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrMenuItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStaleApplication),
		errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.As(err, &pw):
		return http.StatusInternalServerError
	case errors.As(err, &pe):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Server-side failures are
// logged; client mistakes are not.
func respondError(w http.ResponseWriter, r *http.Request, lgr logger.Logger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if errors.Is(err, domain.ErrStaleApplication) {
		applied := false
		resp.Applied = &applied
	}
	if status >= http.StatusInternalServerError {
		lgr.Error("request_failed", "Request failed", requestIDFrom(r.Context()), map[string]interface{}{
			"path":   r.URL.Path,
			"status": status,
		}, err)
		if status == http.StatusInternalServerError {
			resp.Error = "internal server error"
		}
	}

	writeJSON(w, status, resp)
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Field: name, Message: "must be a valid UUID"}
	}
	return id, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Message: "invalid request body"}
	}
	return nil
}
