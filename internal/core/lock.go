package core

import (
	"context"
	"sync"
)

// RequestLock provides context-aware locking for serializing exchanges
// within one conversation
type RequestLock struct {
	sem chan struct{}
}

// NewRequestLock creates a new request lock
func NewRequestLock() *RequestLock {
	return &RequestLock{
		sem: make(chan struct{}, 1),
	}
}

// LockWithContext attempts to acquire the lock, respecting context cancellation
func (c *RequestLock) LockWithContext(ctx context.Context) bool {
	select {
	case c.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false // Context expired before getting lock
	}
}

// Unlock releases the lock
func (c *RequestLock) Unlock() {
	select {
	case <-c.sem:
	default:
		// Already unlocked, avoid panic
	}
}

// requestLocks stores a lock per conversation key
var requestLocks sync.Map

// GetRequestLock returns the lock for a given key, creating it if needed
func GetRequestLock(key string) *RequestLock {
	if lock, ok := requestLocks.Load(key); ok {
		return lock.(*RequestLock)
	}

	newLock := NewRequestLock()
	actual, _ := requestLocks.LoadOrStore(key, newLock)
	return actual.(*RequestLock)
}

// WithRequestLock acquires the lock for a conversation key and runs onSuccess.
// If the context dies before the lock is acquired, onTimeout runs instead.
func WithRequestLock(ctx context.Context, key string, operation string, onSuccess func(), onTimeout func()) {
	lock := GetRequestLock(key)
	logger := GetLogger()

	logger.Debugw("lock_acquiring", "conversation", key, "operation", operation)
	if !lock.LockWithContext(ctx) {
		logger.Warnw("lock_timeout", "conversation", key, "operation", operation)
		if onTimeout != nil {
			onTimeout()
		}
		return
	}
	logger.Debugw("lock_acquired", "conversation", key, "operation", operation)
	defer func() {
		logger.Debugw("lock_released", "conversation", key, "operation", operation)
		lock.Unlock()
	}()

	onSuccess()
}
