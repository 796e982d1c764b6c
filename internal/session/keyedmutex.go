package session

import "sync"

// KeyedMutex serializes operations per key. Entries are reference counted
// and removed as soon as the last holder releases, so the map stays bounded
// by the number of in-flight operations, not by the number of customers
// ever seen. The zero value is ready to use.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *KeyedMutex) acquire(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.entries == nil {
		k.entries = make(map[string]*keyedEntry)
	}
	e := k.entries[key]
	if e == nil {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock blocks until the key is free and returns the unlock func.
func (k *KeyedMutex) Lock(key string) func() {
	e := k.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}
}

// TryLock takes the key's lock only if it is free. On success the returned
// unlock func releases it; otherwise ok is false and there is nothing to
// release.
func (k *KeyedMutex) TryLock(key string) (unlock func(), ok bool) {
	e := k.acquire(key)
	if !e.mu.TryLock() {
		k.release(key, e)
		return nil, false
	}
	return func() {
		e.mu.Unlock()
		k.release(key, e)
	}, true
}

// Len reports the number of live entries.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
