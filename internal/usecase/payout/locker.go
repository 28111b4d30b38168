package payout

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLocked means another driver currently owns the payout.
	ErrLocked = errors.New("payout is locked by another driver")
	// ErrLockLost is the cancellation cause of a lock context whose lock
	// could no longer be held.
	ErrLockLost = errors.New("payout lock lost")
)

// Locker grants exclusive ownership of a key without waiting. Lock returns
// ErrLocked when the key is already held. The returned context is derived
// from ctx and is cancelled with ErrLockLost if ownership ends before unlock.
type Locker interface {
	Lock(ctx context.Context, key string) (lockCtx context.Context, unlock func(), err error)
}

// LocalLocker serializes drivers within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, nil, ErrLocked
	}
	l.held[key] = struct{}{}

	lockCtx, cancel := context.WithCancelCause(ctx)
	var once sync.Once
	return lockCtx, func() {
		once.Do(func() {
			cancel(nil)
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

func lockLost(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrLockLost)
}
