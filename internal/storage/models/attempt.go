// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Outcome is the terminal result of an unlock attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Attempt is one unlock button press, from request to rendered feedback.
type Attempt struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    Outcome   `json:"outcome"`
	// StatusCode is the final HTTP status, zero when no response arrived.
	StatusCode int  `json:"status_code"`
	Redirected bool `json:"redirected"`
	// Message is the relay body exactly as shown on screen.
	Message string `json:"message"`
}

// Duration returns how long the attempt took.
func (a *Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// AttemptStats summarizes the journal.
type AttemptStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
