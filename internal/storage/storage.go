// Package storage keeps an append-only JSONL transcript of answered turns.
package storage

import "time"

// Event is one line of the transcript.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Turn       int       `json:"turn"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Kind       string    `json:"kind"`
	Passages   int       `json:"passages"`
	DurationMS int64     `json:"duration_ms"`
}
