package kv

import (
	"context"
	"errors"
	"fmt"
)

var ErrKeyNotFound = errors.New("key not found")
var ErrInvalidKey = errors.New("invalid key")

// Well-known keys.
const (
	KeyEvents                  = "events"
	KeyNotifications           = "notifications"
	KeyDemoEventsLoaded        = "demo-events-loaded"
	KeyDemoNotificationsLoaded = "demo-notifications-loaded"
	KeyCurrentUser             = "current-user"
	KeyUsers                   = "users"
	KeyPublishState            = "publish-state"
)

// Store is a minimal key-value storage.
type Store interface {
	// Get returns the stored value or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Logger interface for storage diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// validateKey restricts keys to lowercase letters, digits, '-' and '_',
// which keeps them safe as file names and SQL literals alike.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// GetBool reads a boolean flag. A missing key reads as false.
func GetBool(ctx context.Context, s Store, key string) (bool, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}

// SetBool writes a boolean flag as a JSON literal.
func SetBool(ctx context.Context, s Store, key string, v bool) error {
	if v {
		return s.Set(ctx, key, []byte("true"))
	}
	return s.Set(ctx, key, []byte("false"))
}
