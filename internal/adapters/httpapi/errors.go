package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/letsrendez/rendez-api/internal/app/accommodations"
	"github.com/letsrendez/rendez-api/internal/app/suggestions"
	"github.com/letsrendez/rendez-api/internal/app/trips"
)

// ErrorResponse is the JSON error envelope shared by every endpoint.
type ErrorResponse struct {
	Error struct {
		Code      string                            `json:"code"`
		Message   string                            `json:"message"`
		Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
		RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(er)
}

// writeServiceError maps an application-layer error to the envelope. Anything
// that is not a tagged app error surfaces as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tripsErr *trips.Error
	if errors.As(err, &tripsErr) {
		writeError(w, r, tripsErr.Status, tripsErr.Code, tripsErr.Message, tripsErr.Details)
		return
	}
	var accErr *accommodations.Error
	if errors.As(err, &accErr) {
		writeError(w, r, accErr.Status, accErr.Code, accErr.Message, accErr.Details)
		return
	}
	var sugErr *suggestions.Error
	if errors.As(err, &sugErr) {
		writeError(w, r, sugErr.Status, sugErr.Code, sugErr.Message, sugErr.Details)
		return
	}
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
