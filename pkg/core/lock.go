package core

import (
	"context"
	"sync"
)

// KeyedMutex is an in-process Locker. It only serializes resolutions
// within one process; use a distributed Locker across processes.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock implements Locker.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
		return nil
	}, nil
}

func (k *KeyedMutex) release(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// LockKey is the key a resolver locks for a (parent, name) pair.
func LockKey(parent ContainerID, name string) string {
	if parent == Root {
		return "ns:root/" + name
	}
	return "ns:" + string(parent) + "/" + name
}
