package refresh

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// defaultRegistrySize bounds the lock registry to 1,000 idle entries, per
// spec §3's refresh lock registry rule.
const defaultRegistrySize = 1000

// lockEntry is a shared mutex with a strong-reference count. A count of
// zero means only the registry itself holds a reference, which is the
// only state in which the entry may be LRU-evicted.
type lockEntry struct {
	mu       sync.Mutex
	refCount int
}

// lockRegistry maps a key to a shared *lockEntry, bounded to size entries
// with refcount==0 ("idle") kept in LRU order. Entries currently held by a
// caller (refCount > 0, "active") are never subject to eviction — they
// live outside the bounded cache until released.
type lockRegistry struct {
	mu     sync.Mutex
	active map[string]*lockEntry
	idle   *lru.Cache
}

func newLockRegistry(size int) *lockRegistry {
	idle, err := lru.New(size)
	if err != nil {
		// size is always a positive constant; lru.New only errors for size <= 0.
		idle, _ = lru.New(defaultRegistrySize)
	}
	return &lockRegistry{active: make(map[string]*lockEntry), idle: idle}
}

// acquire locks the mutex for key, creating it if absent (reviving it from
// the idle LRU if it was there), and returns a release func. The release
// func unlocks the mutex and, once the refcount drops to zero, returns the
// entry to the bounded idle cache.
func (r *lockRegistry) acquire(key string) func() {
	r.mu.Lock()
	var entry *lockEntry
	if e, ok := r.active[key]; ok {
		e.refCount++
		entry = e
	} else if v, ok := r.idle.Get(key); ok {
		r.idle.Remove(key)
		e := v.(*lockEntry)
		e.refCount = 1
		r.active[key] = e
		entry = e
	} else {
		e := &lockEntry{refCount: 1}
		r.active[key] = e
		entry = e
	}
	r.mu.Unlock()

	entry.mu.Lock()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		entry.mu.Unlock()
		r.mu.Lock()
		entry.refCount--
		if entry.refCount == 0 {
			delete(r.active, key)
			r.idle.Add(key, entry)
		}
		r.mu.Unlock()
	}
}
