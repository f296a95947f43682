package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"threepl/internal/core"
	"threepl/internal/log"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorBody{
		Error:     code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// statusFor maps domain errors onto HTTP statuses and stable codes. Domain
// sentinels win over errBadRequest so a bad amount inside a body stays a 422.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrIndexOutOfRange):
		return http.StatusNotFound, "index_out_of_range"
	case errors.Is(err, core.ErrMissingCategory):
		return http.StatusUnprocessableEntity, "missing_category"
	case errors.Is(err, core.ErrInvalidShipment):
		return http.StatusUnprocessableEntity, "invalid_shipment"
	case errors.Is(err, core.ErrInvalidMode):
		return http.StatusUnprocessableEntity, "invalid_mode"
	case errors.Is(err, core.ErrInvalidDrivers):
		return http.StatusUnprocessableEntity, "invalid_drivers"
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "invalid_amount"
	case errors.Is(err, core.ErrInvalidKind):
		return http.StatusUnprocessableEntity, "invalid_kind"
	case errors.Is(err, core.ErrEmptyCategory):
		return http.StatusUnprocessableEntity, "empty_category"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	logger := log.FromContext(r.Context())
	switch status {
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeInternal)
		msg = "internal error"
	case http.StatusNotFound:
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeNotFound)
	default:
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeValidation)
	}
	writeError(w, r, status, code, msg)
}

// decodeJSON reads one JSON document into dst. Unknown fields and trailing
// data are rejected. An empty body leaves dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}
