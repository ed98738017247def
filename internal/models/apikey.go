package models

import "time"

// APIKey represents a stored API key record. The plaintext key is never
// stored, only its SHA-256 hash.
type APIKey struct {
	KeyID       string    `json:"key_id"`
	KeyHash     string    `json:"-"`
	UserID      string    `json:"user_id"`
	Permissions []string  `json:"permissions"`
	UsageCount  int       `json:"usage_count"`
	RateLimit   int       `json:"rate_limit"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsActive    bool      `json:"is_active"`
}

// GeneratedKey is returned exactly once at key creation with the plaintext.
type GeneratedKey struct {
	KeyID       string    `json:"key_id"`
	APIKey      string    `json:"api_key"`
	UserID      string    `json:"user_id"`
	Permissions []string  `json:"permissions"`
	RateLimit   int       `json:"rate_limit"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UsageEntry is one logged API call for a key.
type UsageEntry struct {
	KeyID          string    `json:"key_id"`
	Endpoint       string    `json:"endpoint"`
	RequestData    string    `json:"request_data"`
	ResponseData   string    `json:"response_data"`
	ProcessingTime float64   `json:"processing_time"`
	Timestamp      time.Time `json:"timestamp"`
}

// UsageStat aggregates calls per endpoint for a key.
type UsageStat struct {
	Endpoint          string  `json:"endpoint"`
	Requests          int     `json:"requests"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
}
