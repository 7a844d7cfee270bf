// Package input turns physical or virtual button presses into discrete events.
package input

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/unlock-remote/device/internal/metrics"
)

// Button identifies one of the two buttons.
type Button string

const (
	// ButtonA triggers an unlock.
	ButtonA Button = "a"
	// ButtonB shows the battery view.
	ButtonB Button = "b"
)

// ParseButton accepts a/unlock/1 and b/battery/2, case-insensitively.
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "unlock", "1":
		return ButtonA, nil
	case "b", "battery", "2":
		return ButtonB, nil
	default:
		return "", fmt.Errorf("unknown button %q", s)
	}
}

// Event is one press.
type Event struct {
	Button    Button
	PressedAt time.Time
	// Source names where the press came from, e.g. "keyboard" or "api".
	Source string
}

var (
	// ErrBusy is returned when the consumer is still handling the previous press.
	ErrBusy = errors.New("remote is busy")
	// ErrDebounced is returned for a repeat press inside the debounce window.
	ErrDebounced = errors.New("press ignored by debounce")
)

// Dispatcher hands presses to a single consumer. Presses are not queued: if the
// consumer is not waiting for the next event the press is dropped.
type Dispatcher struct {
	events   chan Event
	debounce time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics

	mu   sync.Mutex
	last map[Button]time.Time
}

// NewDispatcher creates a dispatcher with the given debounce window.
func NewDispatcher(debounce time.Duration, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		events:   make(chan Event),
		debounce: debounce,
		now:      time.Now,
		metrics:  m,
		last:     make(map[Button]time.Time),
	}
}

// Events is read by the consumer loop.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Press raises one event for b.
func (d *Dispatcher) Press(b Button, source string) error {
	now := d.now()

	d.mu.Lock()
	if last, ok := d.last[b]; ok && now.Sub(last) < d.debounce {
		d.mu.Unlock()
		d.metrics.DroppedPress(string(b), "debounce")
		return ErrDebounced
	}
	d.last[b] = now
	d.mu.Unlock()

	select {
	case d.events <- Event{Button: b, PressedAt: now, Source: source}:
		return nil
	default:
		log.Printf("Dropped button %s press from %s: busy", b, source)
		d.metrics.DroppedPress(string(b), "busy")
		return ErrBusy
	}
}
