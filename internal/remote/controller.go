// Package remote drives the unlock and battery flows behind the two buttons.
package remote

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unlock-remote/device/internal/battery"
	"github.com/unlock-remote/device/internal/display"
	"github.com/unlock-remote/device/internal/metrics"
	"github.com/unlock-remote/device/internal/relay"
	"github.com/unlock-remote/device/internal/storage/models"
)

// State is the controller's position in the unlock flow.
type State string

const (
	Idle                 State = "idle"
	AwaitingConnectivity State = "awaiting_connectivity"
	Requesting           State = "requesting"
	Success              State = "success"
	Failure              State = "failure"
	ShowingBattery       State = "showing_battery"
	Booting              State = "booting"
)

// AllStates lists every state, for metrics.
var AllStates = []State{Idle, AwaitingConnectivity, Requesting, Success, Failure, ShowingBattery, Booting}

// Connectivity is the network link as seen by the controller.
type Connectivity interface {
	Connected() bool
	EnsureConnected(ctx context.Context, progress display.Display) error
}

// Requester sends relay requests.
type Requester interface {
	Request(ctx context.Context, target, method string, body []byte) (relay.Result, error)
}

// Journal records finished unlock attempts.
type Journal interface {
	Record(ctx context.Context, attempt *models.Attempt) error
}

// Notifier publishes controller activity to observers.
type Notifier interface {
	BroadcastControllerState(previous, current string)
	BroadcastUnlockCompleted(attempt models.Attempt)
}

// Config holds the static unlock settings.
type Config struct {
	Endpoint string
	History  string
	APIKey   string
	QRCode   string
	// Dwell is how long Success, Failure and the battery view stay on screen.
	Dwell time.Duration
}

// Controller owns the display for the duration of each action. Its methods are
// meant to be called from a single goroutine, normally Run.
type Controller struct {
	cfg       Config
	network   Connectivity
	requester Requester
	screen    display.Display
	sensor    battery.Sensor

	journal  Journal
	notifier Notifier
	metrics  *metrics.Metrics
	sleep    func(ctx context.Context, d time.Duration)
	now      func() time.Time

	mu    sync.RWMutex
	state State
	last  *models.Attempt
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records every attempt.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithNotifier publishes state changes and attempts.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithMetrics records attempts and states.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithSleep replaces the dwell wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// NewController creates a controller in the Idle state.
func NewController(cfg Config, network Connectivity, requester Requester, screen display.Display, sensor battery.Sensor, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		network:   network,
		requester: requester,
		screen:    screen,
		sensor:    sensor,
		sleep:     sleepContext,
		now:       time.Now,
		state:     Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.ControllerState(string(Idle), stateNames())
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastAttempt returns the most recent finished unlock attempt, or nil.
func (c *Controller) LastAttempt() *models.Attempt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	a := *c.last
	return &a
}

// Boot shows the battery, waits for the network, then dims the screen.
func (c *Controller) Boot(ctx context.Context) error {
	c.setState(Booting)
	defer c.setState(Idle)

	c.screen.SetBacklight(true)
	c.drawBattery()

	if err := c.network.EnsureConnected(ctx, c.screen); err != nil {
		c.screen.SetBacklight(false)
		return err
	}

	c.sleep(ctx, c.cfg.Dwell)
	c.screen.SetBacklight(false)
	return nil
}

// Unlock runs one full unlock sequence and returns the recorded attempt. It
// always ends back in Idle with the screen dimmed.
func (c *Controller) Unlock(ctx context.Context) models.Attempt {
	attempt := models.Attempt{
		ID:        uuid.NewString(),
		StartedAt: c.now().UTC(),
	}

	c.screen.SetBacklight(true)
	c.drawBattery()

	connected := true
	if !c.network.Connected() {
		c.setState(AwaitingConnectivity)
		if err := c.network.EnsureConnected(ctx, c.screen); err != nil {
			log.Printf("Unlock %s aborted: %v", attempt.ID, err)
			attempt.Message = "NO NETWORK"
			connected = false
		}
	}

	if connected {
		c.setState(Requesting)
		c.screen.SetTextColor(display.White)
		c.screen.Print("UNLOCKING...\n")
		c.request(ctx, &attempt)
	}

	attempt.FinishedAt = c.now().UTC()
	if relay.Succeeded(attempt.Message) {
		attempt.Outcome = models.OutcomeSuccess
		c.setState(Success)
		c.screen.SetTextColor(display.Green)
		c.screen.Print("UNLOCKED!")
	} else {
		attempt.Outcome = models.OutcomeFailure
		c.setState(Failure)
		c.screen.SetTextColor(display.Red)
		c.screen.Print(fmt.Sprintf("! %s\n", attempt.Message))
	}

	log.Printf("Unlock %s finished: %s (status %d) in %v",
		attempt.ID, attempt.Outcome, attempt.StatusCode, attempt.FinishedAt.Sub(attempt.StartedAt).Round(time.Millisecond))
	c.finish(ctx, &attempt)

	c.sleep(ctx, c.cfg.Dwell)
	c.screen.SetBacklight(false)
	c.setState(Idle)
	return attempt
}

// request sends the unlock command and stores the relay's answer in attempt.
func (c *Controller) request(ctx context.Context, attempt *models.Attempt) {
	payload, err := relay.NewUnlockRequest(c.cfg.History, c.cfg.APIKey, c.cfg.QRCode).Payload()
	if err != nil {
		log.Printf("Unlock %s: %v", attempt.ID, err)
		return
	}

	log.Printf("Unlock %s: sending request to relay", attempt.ID)
	result, err := c.requester.Request(ctx, c.cfg.Endpoint, http.MethodPost, payload)
	if err != nil {
		// The body, usually empty, is still what the user sees.
		log.Printf("Unlock %s: relay request failed: %v", attempt.ID, err)
	}

	attempt.StatusCode = result.StatusCode
	attempt.Redirected = result.Redirected
	attempt.Message = result.Body
}

func (c *Controller) finish(ctx context.Context, attempt *models.Attempt) {
	c.mu.Lock()
	a := *attempt
	c.last = &a
	c.mu.Unlock()

	c.metrics.UnlockAttempt(string(attempt.Outcome))
	if c.journal != nil {
		if err := c.journal.Record(ctx, attempt); err != nil {
			log.Printf("Failed to record unlock attempt %s: %v", attempt.ID, err)
		}
	}
	if c.notifier != nil {
		c.notifier.BroadcastUnlockCompleted(*attempt)
	}
}

// ShowBattery shows the battery glyph for the dwell time. It never touches the network.
func (c *Controller) ShowBattery(ctx context.Context) {
	c.setState(ShowingBattery)
	c.screen.SetBacklight(true)
	c.drawBattery()
	c.sleep(ctx, c.cfg.Dwell)
	c.screen.SetBacklight(false)
	c.setState(Idle)
}

func (c *Controller) drawBattery() {
	reading, err := c.sensor.Read()
	if err != nil {
		log.Printf("Failed to read battery: %v", err)
		return
	}
	display.ShowBattery(c.screen, reading)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	previous := c.state
	c.state = s
	c.mu.Unlock()

	if previous == s {
		return
	}
	c.metrics.ControllerState(string(s), stateNames())
	if c.notifier != nil {
		c.notifier.BroadcastControllerState(string(previous), string(s))
	}
}

func stateNames() []string {
	names := make([]string, len(AllStates))
	for i, s := range AllStates {
		names[i] = string(s)
	}
	return names
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
