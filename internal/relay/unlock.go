package relay

import (
	"encoding/json"
	"fmt"
)

// CommandUnlock is the only command the remote sends.
const CommandUnlock = "unlock"

// SuccessBody is the exact body the relay returns once the lock has opened.
const SuccessBody = "SUCCEEDED"

// UnlockRequest is the JSON body of an unlock call. Field order is the wire order.
type UnlockRequest struct {
	Command string `json:"command"`
	History string `json:"history"`
	APIKey  string `json:"apiKey"`
	QRCode  string `json:"qrCode"`
}

// NewUnlockRequest builds the payload for one button press.
func NewUnlockRequest(history, apiKey, qrCode string) UnlockRequest {
	return UnlockRequest{
		Command: CommandUnlock,
		History: history,
		APIKey:  apiKey,
		QRCode:  qrCode,
	}
}

// Payload serializes the request.
func (u UnlockRequest) Payload() ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encoding unlock request: %w", err)
	}
	return data, nil
}

// Succeeded reports whether body is the relay's success marker. No trimming.
func Succeeded(body string) bool {
	return body == SuccessBody
}
