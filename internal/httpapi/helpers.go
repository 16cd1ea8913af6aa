package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"agora.events/internal/events"
	"agora.events/internal/identity"
)

// writeJSON serializes v with the shared content type.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess wraps data in the service envelope.
func writeSuccess(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{
		"success": true,
		"data":    data,
	})
}

// writeError wraps a failure in the service envelope, carrying the request id
// when one is known.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"success": false,
		"message": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrMissingToken):
		writeError(w, r, http.StatusForbidden, "No auth token provided")
	case errors.Is(err, identity.ErrAccessDenied):
		writeError(w, r, http.StatusUnauthorized, "Access denied")
	default:
		writeError(w, r, http.StatusInternalServerError, "Could not contact core to authenticate user")
	}
}

func handleEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrInvalidInput), errors.Is(err, events.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, events.ErrSlugTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, events.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
