package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteHTML writes trusted markup with the given status code
func WriteHTML(w http.ResponseWriter, status int, markup template.HTML) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(markup))
	return err
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteNotFoundError writes a not found error response (404 Not Found)
func WriteNotFoundError(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes an internal server error response (500 Internal Server Error)
// without the underlying detail
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
}

// WriteGatewayTimeout writes a request timeout error (504)
func WriteGatewayTimeout(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusGatewayTimeout, "request timeout")
}

// StatusFor maps a storage or parsing error to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteStoreError writes err with the status StatusFor picks. Internal
// failures are reported without their detail.
func WriteStoreError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		WriteBadRequest(w, err.Error())
	case http.StatusNotFound:
		WriteNotFoundError(w, err.Error())
	case http.StatusGatewayTimeout:
		WriteGatewayTimeout(w)
	default:
		WriteInternalError(w)
	}
	return status
}
