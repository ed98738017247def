package models

import "time"

// RequestLog represents a logged nucleus request
type RequestLog struct {
	Timestamp  time.Time `json:"ts"`
	RequestID  string    `json:"request_id"`
	Source     string    `json:"source"`
	Operation  string    `json:"operation"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Status     string    `json:"status"`
	Error      string    `json:"error"`
	DurationMs float64   `json:"dur_ms"`
	WorkerID   string    `json:"worker_id"`
}
