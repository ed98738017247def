package client

import "time"

// NucleusRequest represents a request to the nucleus service
type NucleusRequest struct {
	ReqID   string `json:"req_id"`
	Input   string `json:"input"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// ExecutionResult carries the shell outcome of a command operation
type ExecutionResult struct {
	Success bool   `json:"success"`
	Command string `json:"command"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
}

// NucleusResponse represents a response from the nucleus service
type NucleusResponse struct {
	ReqID      string           `json:"req_id"`
	Operation  string           `json:"operation"`
	Type       string           `json:"type"`
	Text       string           `json:"text"`
	Confidence float64          `json:"confidence,omitempty"`
	TokenCount int              `json:"token_count,omitempty"`
	Execution  *ExecutionResult `json:"execution,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// HealthStatus represents nucleus service health information
type HealthStatus struct {
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
	TTYActive    bool      `json:"tty_active"`
}
