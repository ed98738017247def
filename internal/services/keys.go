package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/razonbilstro/nucleus-service/internal/models"
	"github.com/razonbilstro/nucleus-service/internal/repository"
)

const (
	keyIDPrefix       = "rzb_"
	defaultRateLimit  = 1000
	defaultExpiryDays = 365
)

// defaultPermissions is granted when a key request names none.
var defaultPermissions = []string{"chat", "commands"}

// adminPermissions is the full catalog, granted to the bootstrap key.
var adminPermissions = []string{"chat", "commands", "process", "admin"}

type KeyService struct {
	repo repository.Repository
}

func NewKeyService(repo repository.Repository) *KeyService {
	return &KeyService{repo: repo}
}

// GenerateKey creates a new API key. The plaintext key is part of the
// returned GeneratedKey and is never recoverable afterwards: only its
// SHA-256 hash is stored.
func (s *KeyService) GenerateKey(ctx context.Context, userID string, permissions []string, expiresDays int) (*models.GeneratedKey, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if len(permissions) == 0 {
		permissions = defaultPermissions
	}
	if expiresDays <= 0 {
		expiresDays = defaultExpiryDays
	}

	keyID := keyIDPrefix + randomHex(8)
	apiKey := keyID + "_" + randomHex(16)
	now := time.Now()

	record := &models.APIKey{
		KeyID:       keyID,
		KeyHash:     hashKey(apiKey),
		UserID:      userID,
		Permissions: permissions,
		RateLimit:   defaultRateLimit,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, expiresDays),
		IsActive:    true,
	}

	if err := s.repo.Keys().InsertKey(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	slog.Info("API key generated",
		"key_id", keyID,
		"user_id", userID,
		"permissions", strings.Join(permissions, ","),
		"expires_at", record.ExpiresAt.Format(time.RFC3339))

	return &models.GeneratedKey{
		KeyID:       keyID,
		APIKey:      apiKey,
		UserID:      userID,
		Permissions: permissions,
		RateLimit:   record.RateLimit,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

// ValidateKey checks an incoming plaintext key against the stored record.
// A valid key must exist, be active, be unexpired, and have remaining
// daily quota.
func (s *KeyService) ValidateKey(ctx context.Context, apiKey string) (*models.APIKey, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}

	sep := strings.LastIndex(apiKey, "_")
	if sep <= len(keyIDPrefix) || !strings.HasPrefix(apiKey, keyIDPrefix) {
		return nil, fmt.Errorf("invalid API key")
	}
	keyID := apiKey[:sep]

	record, err := s.repo.Keys().GetKey(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("invalid API key")
	}
	if record.KeyHash != hashKey(apiKey) {
		return nil, fmt.Errorf("invalid API key")
	}
	if !record.IsActive {
		return nil, fmt.Errorf("API key inactive")
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, fmt.Errorf("API key expired")
	}
	if record.UsageCount >= record.RateLimit {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	return record, nil
}

// HasPermission reports whether a key grants the named permission.
// Admin keys grant everything.
func (s *KeyService) HasPermission(key *models.APIKey, permission string) bool {
	if key == nil {
		return false
	}
	for _, p := range key.Permissions {
		if p == permission || p == "admin" {
			return true
		}
	}
	return false
}

// RecordUsage increments the key's counter and writes one api_usage row.
// Called once per authenticated request that reached a handler.
func (s *KeyService) RecordUsage(ctx context.Context, keyID, endpoint, requestData, responseData string, processingTime float64) error {
	if err := s.repo.Keys().IncrementUsage(ctx, keyID); err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}

	entry := &models.UsageEntry{
		KeyID:          keyID,
		Endpoint:       endpoint,
		RequestData:    requestData,
		ResponseData:   responseData,
		ProcessingTime: processingTime,
		Timestamp:      time.Now(),
	}
	if err := s.repo.Usage().LogUsage(ctx, entry); err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

// GetUsageStats returns per-endpoint request counts and average
// processing times for one key.
func (s *KeyService) GetUsageStats(ctx context.Context, keyID string) ([]*models.UsageStat, error) {
	stats, err := s.repo.Usage().GetUsageStats(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage stats: %w", err)
	}
	return stats, nil
}

// EnsureAdminKey bootstraps a full-permission key when none is active.
// The plaintext is logged exactly once; after that it only exists as a
// hash.
func (s *KeyService) EnsureAdminKey(ctx context.Context) error {
	count, err := s.repo.Keys().CountActiveAdminKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admin keys: %w", err)
	}
	if count > 0 {
		return nil
	}

	generated, err := s.GenerateKey(ctx, "admin", adminPermissions, defaultExpiryDays)
	if err != nil {
		return fmt.Errorf("failed to generate admin key: %w", err)
	}

	slog.Info("Initial admin API key generated, store it now",
		"key_id", generated.KeyID,
		"api_key", generated.APIKey)
	s.repo.Event().LogEvent(ctx, "info", "admin_key_created", "initial admin API key generated", map[string]interface{}{
		"key_id": generated.KeyID,
	})
	return nil
}

func hashKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
