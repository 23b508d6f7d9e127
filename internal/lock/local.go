package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/contractledger/internal/clock"
)

type held struct {
	token     string
	expiresAt time.Time
}

// LocalLocker serializes holders within one process. It is used when no
// redis address is configured.
type LocalLocker struct {
	mu    sync.Mutex
	clock clock.Clock
	keys  map[string]held
}

func NewLocalLocker(c clock.Clock) *LocalLocker {
	if c == nil {
		c = clock.New()
	}
	return &LocalLocker{clock: c, keys: make(map[string]held)}
}

func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validate(key, ttl); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if current, ok := l.keys[key]; ok && now.Before(current.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.keys[key] = held{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.keys[key]; ok && current.token == token {
		delete(l.keys, key)
	}
	return nil
}
