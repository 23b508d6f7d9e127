// Package lock provides short-lived mutual exclusion keyed by string.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	errEmptyKey    = errors.New("lock key is empty")
	errInvalidTTL  = errors.New("lock ttl must be positive")
	errNotAcquired = errors.New("lock client not configured")
)

// Locker hands out a token for key when it is free. ok is false when another
// holder owns the key. Release only frees a key still held under token.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if ttl <= 0 {
		return errInvalidTTL
	}
	return nil
}
