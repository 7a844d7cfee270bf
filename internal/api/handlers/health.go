// Package handlers provides HTTP request handlers for the local control API.
package handlers

import (
	"log"
	"net/http"

	"github.com/unlock-remote/device/internal/api/middleware"
	"github.com/unlock-remote/device/internal/battery"
	"github.com/unlock-remote/device/internal/network"
	"github.com/unlock-remote/device/internal/remote"
	"github.com/unlock-remote/device/internal/storage"
	"github.com/unlock-remote/device/internal/storage/models"
)

// Pinger reports whether the journal database is reachable.
type Pinger interface {
	Ping() error
}

// NetworkState reports the current connection state.
type NetworkState interface {
	State() network.State
}

// ControllerState reports what the remote is doing.
type ControllerState interface {
	State() remote.State
	LastAttempt() *models.Attempt
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
	Network     string `json:"network"`
}

// HealthCheck returns a handler that performs a health check. Losing the
// network does not make the device unhealthy.
func HealthCheck(db Pinger, net NetworkState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
			Network:     net.State().String(),
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		middleware.WriteJSON(w, code, response)
	}
}

// BatteryStatus is a battery reading as reported by the API.
type BatteryStatus struct {
	Voltage    float64 `json:"voltage"`
	Current    float64 `json:"current"`
	Percentage int     `json:"percentage"`
	Charging   bool    `json:"charging"`
	Level      string  `json:"level"`
}

// StatusResponse represents the device status response.
type StatusResponse struct {
	State       string              `json:"state"`
	Network     string              `json:"network"`
	Battery     *BatteryStatus      `json:"battery,omitempty"`
	LastAttempt *models.Attempt     `json:"last_attempt,omitempty"`
	Attempts    models.AttemptStats `json:"attempts"`
}

// Status returns a handler that reports the controller, network and battery.
func Status(ctrl ControllerState, net NetworkState, sensor battery.Sensor, attempts *storage.AttemptRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := StatusResponse{
			State:       string(ctrl.State()),
			Network:     net.State().String(),
			LastAttempt: ctrl.LastAttempt(),
		}

		if reading, err := sensor.Read(); err != nil {
			log.Printf("Status: failed to read battery: %v", err)
		} else {
			response.Battery = &BatteryStatus{
				Voltage:    reading.Voltage,
				Current:    reading.Current,
				Percentage: reading.Percentage(),
				Charging:   reading.Charging(),
				Level:      string(reading.Level()),
			}
		}

		stats, err := attempts.Stats(r.Context())
		if err != nil {
			log.Printf("Status: failed to count attempts: %v", err)
		}
		response.Attempts = stats

		middleware.WriteJSON(w, http.StatusOK, response)
	}
}
