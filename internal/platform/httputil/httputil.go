// Package httputil provides the JSON request/response helpers shared by all
// HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes carried on the wire.
const (
	CodeInvalidArgument = "invalid-argument"
	CodeUnauthenticated = "unauthenticated"
	CodeNotFound        = "not-found"
	CodeInternal        = "internal"
)

// Error is a transport-level error with a stable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// NewError constructs a transport error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func statusFor(code string) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as a JSON error body. Non-transport errors are
// collapsed to an internal error so internals never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	var te *Error
	if !errors.As(err, &te) {
		te = NewError(CodeInternal, "internal error")
	}
	WriteJSON(w, statusFor(te.Code), map[string]any{"error": te})
}

// Decode parses the JSON request body into T. On failure it writes an
// invalid-argument response and reports ok=false.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		WriteError(w, NewError(CodeInvalidArgument, "malformed request body"))
		return v, false
	}
	return v, true
}
