// Package network keeps the remote's network link up before any relay call.
package network

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unlock-remote/device/internal/display"
	"github.com/unlock-remote/device/internal/metrics"
)

// State is the link state owned by the Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Link is the underlying network interface.
type Link interface {
	// Begin starts joining the network. It does not wait for the result.
	Begin(ctx context.Context, ssid, passphrase string) error
	// Connected reports whether the link is currently up.
	Connected(ctx context.Context) bool
}

// Credentials identify the network to join.
type Credentials struct {
	SSID       string
	Passphrase string
}

// StateListener is told about every state transition.
type StateListener func(previous, current State)

// Manager owns the connection state and blocks callers until the link is up.
type Manager struct {
	link     Link
	creds    Credentials
	interval time.Duration
	timeout  time.Duration
	metrics  *metrics.Metrics

	mu        sync.Mutex
	state     State
	listeners []StateListener
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds EnsureConnected. Zero keeps the unbounded wait.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithMetrics records wait time and state changes.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager creates a manager that polls link every interval while connecting.
func NewManager(link Link, creds Credentials, interval time.Duration, opts ...Option) *Manager {
	if interval <= 0 {
		interval = time.Second
	}
	m := &Manager{
		link:     link,
		creds:    creds,
		interval: interval,
		state:    Disconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnStateChange registers a listener. Listeners run synchronously.
func (m *Manager) OnStateChange(l StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the state is Connected.
func (m *Manager) Connected() bool {
	return m.State() == Connected
}

// EnsureConnected returns immediately when Connected. Otherwise it starts joining
// the network and blocks, polling once per interval, until the link is up. One
// dot is printed to progress per poll. There is no retry limit: without a
// configured timeout only ctx ends the wait.
func (m *Manager) EnsureConnected(ctx context.Context, progress display.Display) error {
	if m.Connected() {
		return nil
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	progress.SetTextColor(display.White)
	progress.Print("CONNECTING")

	log.Printf("Joining network %q", m.creds.SSID)
	m.setState(Connecting)
	if err := m.link.Begin(ctx, m.creds.SSID, m.creds.Passphrase); err != nil {
		// Keep polling; the link may still come up.
		log.Printf("Warning: starting network join failed: %v", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	attempts := 0
	for !m.link.Connected(ctx) {
		select {
		case <-ctx.Done():
			m.setState(Disconnected)
			log.Printf("Gave up waiting for network after %d polls: %v", attempts, ctx.Err())
			return fmt.Errorf("waiting for network: %w", ctx.Err())
		case <-ticker.C:
		}
		attempts++
		progress.Print(".")
	}

	m.setState(Connected)
	m.metrics.ConnectWait(time.Since(start))
	log.Printf("Network connected after %d polls (%v)", attempts, time.Since(start).Round(time.Millisecond))

	progress.SetTextColor(display.Green)
	progress.Print("\nCONNECTED!")
	return nil
}

// Refresh polls the link once and records a lost or regained connection. It never
// starts a join and leaves a Connecting state to EnsureConnected.
func (m *Manager) Refresh(ctx context.Context) State {
	current := m.State()
	if current == Connecting {
		return current
	}

	up := m.link.Connected(ctx)
	switch {
	case up && current != Connected:
		m.setState(Connected)
		return Connected
	case !up && current == Connected:
		log.Println("Network link lost")
		m.setState(Disconnected)
		return Disconnected
	}
	return current
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	previous := m.state
	m.state = s
	listeners := append([]StateListener(nil), m.listeners...)
	m.mu.Unlock()

	if previous == s {
		return
	}
	m.metrics.ConnectionState(int(s))
	for _, l := range listeners {
		l(previous, s)
	}
}
