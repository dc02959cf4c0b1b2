// Package keylock provides reader/writer locks per string key.
package keylock

import (
	"sort"
	"sync"
)

type entry struct {
	rw   sync.RWMutex
	refs int
}

// KeyLock hands out one RWMutex per key. Entries are released once no
// goroutine holds or waits for them.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*entry)}
}

func (k *KeyLock) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyLock) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.locks[key]; ok {
		e.refs--
		if e.refs <= 0 {
			delete(k.locks, key)
		}
	}
}

// Lock acquires the write lock of key. The returned func releases it.
func (k *KeyLock) Lock(key string) func() {
	e := k.acquire(key)
	e.rw.Lock()
	return func() {
		e.rw.Unlock()
		k.release(key)
	}
}

// RLock acquires the read lock of key. The returned func releases it.
func (k *KeyLock) RLock(key string) func() {
	e := k.acquire(key)
	e.rw.RLock()
	return func() {
		e.rw.RUnlock()
		k.release(key)
	}
}

// LockAll write locks all keys in sorted order.
func (k *KeyLock) LockAll(keys ...string) func() {
	return k.all(k.Lock, keys)
}

// RLockAll read locks all keys in sorted order.
func (k *KeyLock) RLockAll(keys ...string) func() {
	return k.all(k.RLock, keys)
}

func (k *KeyLock) all(lockFunc func(string) func(), keys []string) func() {
	sorted := uniqueSorted(keys)
	unlocks := make([]func(), 0, len(sorted))
	for _, key := range sorted {
		unlocks = append(unlocks, lockFunc(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Len returns the number of keys currently in use.
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func uniqueSorted(keys []string) []string {
	ret := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ret = append(ret, key)
	}
	sort.Strings(ret)
	return ret
}
