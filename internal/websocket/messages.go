package websocket

import (
	"encoding/json"
	"time"

	"github.com/unlock-remote/device/internal/storage/models"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	TypeControllerStateChanged MessageType = "remote.state_changed"
	TypeUnlockCompleted        MessageType = "unlock.completed"
	TypeNetworkStateChanged    MessageType = "network.state_changed"
	TypeBatterySampled         MessageType = "battery.sampled"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// StatePayload is the payload for remote.state_changed and network.state_changed.
type StatePayload struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// UnlockPayload is the payload for unlock.completed.
type UnlockPayload struct {
	models.Attempt
	DurationMS int64 `json:"duration_ms"`
}

// BatteryPayload is the payload for battery.sampled.
type BatteryPayload struct {
	Voltage    float64 `json:"voltage"`
	Current    float64 `json:"current"`
	Percentage int     `json:"percentage"`
	Charging   bool    `json:"charging"`
	Level      string  `json:"level"`
}
