// Package metrics exposes Prometheus collectors for the remote.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the remote's collectors. A nil *Metrics records nothing.
type Metrics struct {
	unlockAttempts   *prometheus.CounterVec
	relayRequests    *prometheus.CounterVec
	relayDuration    prometheus.Histogram
	redirects        prometheus.Counter
	connectWait      prometheus.Histogram
	connectionState  prometheus.Gauge
	batteryPercent   prometheus.Gauge
	batteryVoltage   prometheus.Gauge
	droppedPresses   *prometheus.CounterVec
	controllerStates *prometheus.GaugeVec
}

// New creates the collectors.
func New() *Metrics {
	return &Metrics{
		unlockAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_unlock_attempts_total",
				Help: "Unlock attempts by outcome",
			},
			[]string{"outcome"},
		),
		relayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_relay_requests_total",
				Help: "HTTP requests sent to the relay by method and status code",
			},
			[]string{"method", "code"},
		),
		relayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remote_relay_request_duration_seconds",
			Help:    "Duration of a relay request including the redirect hop",
			Buckets: prometheus.DefBuckets,
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remote_relay_redirects_total",
			Help: "Redirects followed by the relay requester",
		}),
		connectWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remote_connect_wait_seconds",
			Help:    "Time spent blocked waiting for the network link",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 300},
		}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remote_connection_state",
			Help: "Network link state (0 disconnected, 1 connecting, 2 connected)",
		}),
		batteryPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remote_battery_percent",
			Help: "Estimated battery charge percentage",
		}),
		batteryVoltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "remote_battery_voltage_volts",
			Help: "Battery voltage",
		}),
		droppedPresses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_button_presses_dropped_total",
				Help: "Button presses ignored by debounce or while busy",
			},
			[]string{"button", "reason"},
		),
		controllerStates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "remote_controller_state",
				Help: "1 for the controller's current state",
			},
			[]string{"state"},
		),
	}
}

// Collectors lists every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.unlockAttempts,
		m.relayRequests,
		m.relayDuration,
		m.redirects,
		m.connectWait,
		m.connectionState,
		m.batteryPercent,
		m.batteryVoltage,
		m.droppedPresses,
		m.controllerStates,
	}
}

// Registry builds a registry holding the collectors plus the Go runtime collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(m.Collectors()...)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// Handler exposes a registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// UnlockAttempt counts a finished unlock by outcome.
func (m *Metrics) UnlockAttempt(outcome string) {
	if m == nil {
		return
	}
	m.unlockAttempts.WithLabelValues(outcome).Inc()
}

// RelayRequest counts one HTTP exchange with the relay; code is "error" on transport failure.
func (m *Metrics) RelayRequest(method string, code string) {
	if m == nil {
		return
	}
	m.relayRequests.WithLabelValues(method, code).Inc()
}

// RelayDuration observes a full relay request, redirect included.
func (m *Metrics) RelayDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.relayDuration.Observe(d.Seconds())
}

// Redirect counts a followed 302.
func (m *Metrics) Redirect() {
	if m == nil {
		return
	}
	m.redirects.Inc()
}

// ConnectWait observes how long an EnsureConnected call blocked.
func (m *Metrics) ConnectWait(d time.Duration) {
	if m == nil {
		return
	}
	m.connectWait.Observe(d.Seconds())
}

// ConnectionState sets the network state gauge.
func (m *Metrics) ConnectionState(v int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(v))
}

// Battery records the latest battery sample.
func (m *Metrics) Battery(percent int, voltage float64) {
	if m == nil {
		return
	}
	m.batteryPercent.Set(float64(percent))
	m.batteryVoltage.Set(voltage)
}

// DroppedPress counts a press ignored for reason ("busy" or "debounce").
func (m *Metrics) DroppedPress(button, reason string) {
	if m == nil {
		return
	}
	m.droppedPresses.WithLabelValues(button, reason).Inc()
}

// ControllerState marks state as current and clears the others.
func (m *Metrics) ControllerState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.controllerStates.WithLabelValues(s).Set(v)
	}
}
