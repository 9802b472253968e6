// Package storage is the durable key/value store backing the client's persisted state
// (session token, cached user, weather history caches).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Well-known keys.
const (
	KeyAuthToken             = "auth_token"
	KeyUserData              = "user_data"
	KeyWeatherComparisons    = "weatherComparisonHistory"
	KeyWeatherHistoricalData = "weatherHistoricalData"
)

// Store persists string values by key.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent; err is only for storage failures.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON decodes the value stored under key into v. Returns false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
