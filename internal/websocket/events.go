package websocket

import (
	"log"

	"github.com/unlock-remote/device/internal/battery"
	"github.com/unlock-remote/device/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastControllerState sends a remote.state_changed event.
func (b *EventBroadcaster) BroadcastControllerState(previous, current string) {
	b.broadcast(NewMessage(TypeControllerStateChanged, StatePayload{Previous: previous, Current: current}))
}

// BroadcastNetworkState sends a network.state_changed event.
func (b *EventBroadcaster) BroadcastNetworkState(previous, current string) {
	b.broadcast(NewMessage(TypeNetworkStateChanged, StatePayload{Previous: previous, Current: current}))
}

// BroadcastUnlockCompleted sends an unlock.completed event.
func (b *EventBroadcaster) BroadcastUnlockCompleted(attempt models.Attempt) {
	b.broadcast(NewMessage(TypeUnlockCompleted, UnlockPayload{
		Attempt:    attempt,
		DurationMS: attempt.Duration().Milliseconds(),
	}))
}

// BroadcastBattery sends a battery.sampled event.
func (b *EventBroadcaster) BroadcastBattery(r battery.Reading) {
	b.broadcast(NewMessage(TypeBatterySampled, BatteryPayload{
		Voltage:    r.Voltage,
		Current:    r.Current,
		Percentage: r.Percentage(),
		Charging:   r.Charging(),
		Level:      string(r.Level()),
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
