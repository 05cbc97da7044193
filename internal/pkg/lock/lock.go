// Package lock provides in-process keyed locking so that money-moving
// operations against the same entity (a ticket being sold or redeemed, a
// wallet being debited) run one at a time.
package lock

import "sync"

// entityMutex wraps a mutex with reference counting for reuse.
type entityMutex struct {
	mu       sync.Mutex
	refCount int
}

// KeyedLock provides per-key locking. Keys are entity ids; callers pick a
// single key space per lock instance (ticket ids, user ids).
type KeyedLock struct {
	locks sync.Map // map[int64]*entityMutex
	pool  sync.Pool
}

// New creates a new KeyedLock instance.
func New() *KeyedLock {
	return &KeyedLock{
		pool: sync.Pool{
			New: func() any {
				return &entityMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given key.
func (kl *KeyedLock) getLock(key int64) *entityMutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*entityMutex)
	}

	newLock := kl.pool.Get().(*entityMutex)
	newLock.refCount = 0

	actual, loaded := kl.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		kl.pool.Put(newLock)
	}
	return actual.(*entityMutex)
}

// Lock acquires the lock for a key, blocking until it is available.
func (kl *KeyedLock) Lock(key int64) {
	lock := kl.getLock(key)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for a key.
func (kl *KeyedLock) Unlock(key int64) {
	if v, ok := kl.locks.Load(key); ok {
		lock := v.(*entityMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired.
func (kl *KeyedLock) TryLock(key int64) bool {
	lock := kl.getLock(key)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// WithLock executes fn while holding the key's lock.
func (kl *KeyedLock) WithLock(key int64, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// IsLocked checks if a key currently has an active lock.
// Note: this is a point-in-time check and may change immediately after.
func (kl *KeyedLock) IsLocked(key int64) bool {
	if v, ok := kl.locks.Load(key); ok {
		lock := v.(*entityMutex)
		if lock.mu.TryLock() {
			lock.mu.Unlock()
			return false
		}
		return true
	}
	return false
}
