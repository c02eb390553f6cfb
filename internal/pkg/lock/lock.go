// Package lock provides per-session locking for credit-spending operations.
// The database is the final arbiter of quota state; the in-process lock just
// keeps one server from racing itself on the same session token.
package lock

import (
	"sync"
)

// sessionMutex wraps a mutex with reference counting for cleanup.
type sessionMutex struct {
	mu       sync.Mutex
	refCount int
}

// SessionLock provides per-session-token locking to serialize credit
// consumption and boost pipelines for a single session.
type SessionLock struct {
	locks sync.Map // map[string]*sessionMutex
	pool  sync.Pool
}

// NewSessionLock creates a new SessionLock instance.
func NewSessionLock() *SessionLock {
	return &SessionLock{
		pool: sync.Pool{
			New: func() any {
				return &sessionMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given token.
func (sl *SessionLock) getLock(token string) *sessionMutex {
	if v, ok := sl.locks.Load(token); ok {
		return v.(*sessionMutex)
	}

	newLock := sl.pool.Get().(*sessionMutex)
	newLock.refCount = 0

	// Store or load existing (handles race condition)
	actual, loaded := sl.locks.LoadOrStore(token, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		sl.pool.Put(newLock)
	}
	return actual.(*sessionMutex)
}

// Lock acquires the lock for a session token.
func (sl *SessionLock) Lock(token string) {
	lock := sl.getLock(token)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a session token.
func (sl *SessionLock) Unlock(token string) {
	if v, ok := sl.locks.Load(token); ok {
		lock := v.(*sessionMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (sl *SessionLock) TryLock(token string) bool {
	lock := sl.getLock(token)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes a function while holding the session's lock.
func (sl *SessionLock) WithLock(token string, fn func() error) error {
	sl.Lock(token)
	defer sl.Unlock(token)
	return fn()
}

// IsLocked checks if a session currently has an active lock.
// Note: This is a point-in-time check and may change immediately after.
func (sl *SessionLock) IsLocked(token string) bool {
	if v, ok := sl.locks.Load(token); ok {
		lock := v.(*sessionMutex)
		if lock.mu.TryLock() {
			lock.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
