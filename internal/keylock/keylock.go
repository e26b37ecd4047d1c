// Package keylock provides per-key write locks for read-modify-write cycles
// against the key-value store.
package keylock

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker hands out exclusive locks by key.
type Locker interface {
	// Lock blocks until key is free or ctx is done. The returned func
	// releases the lock and must be called exactly once.
	Lock(ctx context.Context, key string) (func(), error)
}

// Keyed holds one weighted semaphore of size 1 per key. Semaphores are
// created on first use and kept for the life of the process; the key space
// is small and fixed (the two collections plus the backup prefix).
type Keyed struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// New returns an empty Keyed locker.
func New() *Keyed {
	return &Keyed{sems: make(map[string]*semaphore.Weighted)}
}

func (k *Keyed) sem(key string) *semaphore.Weighted {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		k.sems[key] = s
	}
	return s
}

// Lock acquires the lock for key.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	s := k.sem(key)
	if err := s.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, nil
}

// Nop never blocks. It is the default when writes are not serialized.
type Nop struct{}

// Lock returns a no-op release func.
func (Nop) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// LockAll acquires every key in sorted order so two callers locking
// overlapping sets cannot deadlock. On failure, locks already held are
// released.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range sorted {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}
