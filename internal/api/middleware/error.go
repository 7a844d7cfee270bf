// Package middleware provides HTTP middleware and response helpers for the
// local control API.
package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
)

// Error codes.
const (
	ErrNotFound      = "not_found"
	ErrBadRequest    = "bad_request"
	ErrBusy          = "busy"
	ErrDebounced     = "debounced"
	ErrInternalError = "internal_error"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v as the JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode %T response: %v", v, err)
	}
}

// WriteError writes an ErrorResponse.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// ErrorRecovery turns a handler panic into a 500.
func ErrorRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				log.Printf("Panic in %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "unexpected error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
