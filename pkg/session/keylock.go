package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when another turn for the same session is still running
// after the bounded wait. The boundary maps this to "session busy, retry".
var ErrBusy = errors.New("session busy")

// KeyLock serializes turns per session id. Each key maps to a one-slot
// semaphore; acquisition waits at most the configured duration so a stuck turn
// can never deadlock the next one.
type KeyLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
	wait  time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewKeyLock(wait time.Duration) *KeyLock {
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &KeyLock{
		slots: make(map[string]*lockSlot),
		wait:  wait,
	}
}

// Acquire blocks until the key's slot is free, the wait elapses, or ctx is
// done. On success the returned release function MUST be called exactly once.
func (k *KeyLock) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	slot, ok := k.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		k.slots[key] = slot
	}
	slot.refs++
	k.mu.Unlock()

	timer := time.NewTimer(k.wait)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return func() { k.release(key, slot) }, nil
	case <-timer.C:
		k.unref(key, slot)
		return nil, ErrBusy
	case <-ctx.Done():
		k.unref(key, slot)
		return nil, ctx.Err()
	}
}

func (k *KeyLock) release(key string, slot *lockSlot) {
	<-slot.ch
	k.unref(key, slot)
}

func (k *KeyLock) unref(key string, slot *lockSlot) {
	k.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(k.slots, key)
	}
	k.mu.Unlock()
}
