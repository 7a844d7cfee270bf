// Package api provides HTTP routing for the local control API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/unlock-remote/device/internal/api/handlers"
	"github.com/unlock-remote/device/internal/api/middleware"
	"github.com/unlock-remote/device/internal/battery"
	"github.com/unlock-remote/device/internal/storage"
	"github.com/unlock-remote/device/internal/websocket"
)

// Services is everything the API reads from or drives.
type Services struct {
	DB         *storage.DB
	Attempts   *storage.AttemptRepository
	Hub        *websocket.Hub
	Controller handlers.ControllerState
	Network    handlers.NetworkState
	Sensor     battery.Sensor
	Buttons    handlers.Presser
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck(s.DB, s.Network)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(s.Controller, s.Network, s.Sensor, s.Attempts)).Methods("GET")

	api.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub)).Methods("GET")

	api.HandleFunc("/buttons/{button}", handlers.PressButton(s.Buttons)).Methods("POST")

	api.HandleFunc("/attempts", handlers.ListAttempts(s.Attempts)).Methods("GET")
	api.HandleFunc("/attempts/{id}", handlers.GetAttempt(s.Attempts)).Methods("GET")

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics).Methods("GET")
	}

	return r
}
