package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kopilka/internal/core"
	applog "kopilka/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *core.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: insufficient.Error()})

	case errors.Is(err, core.ErrOperationNotFound),
		errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, core.ErrDueNotFound),
		errors.Is(err, core.ErrDebtNotFound),
		errors.Is(err, core.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})

	case errors.Is(err, core.ErrDueClosed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})

	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrEmptyItems),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidDueDay),
		errors.Is(err, core.ErrAmbiguousAccount):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	default:
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path, applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
