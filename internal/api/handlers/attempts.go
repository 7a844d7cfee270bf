package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/unlock-remote/device/internal/api/middleware"
	"github.com/unlock-remote/device/internal/storage"
)

// MaxAttemptLimit caps ?limit on the attempts list.
const MaxAttemptLimit = 500

// ListAttempts returns a handler that lists journaled attempts, newest first.
func ListAttempts(attempts *storage.AttemptRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := storage.DefaultAttemptLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > MaxAttemptLimit {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest,
					"limit must be between 1 and "+strconv.Itoa(MaxAttemptLimit))
				return
			}
			limit = n
		}

		list, err := attempts.List(r.Context(), limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		middleware.WriteJSON(w, http.StatusOK, list)
	}
}

// GetAttempt returns a handler that fetches one attempt by id.
func GetAttempt(attempts *storage.AttemptRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempt, err := attempts.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}
		if attempt == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "attempt not found")
			return
		}

		middleware.WriteJSON(w, http.StatusOK, attempt)
	}
}
