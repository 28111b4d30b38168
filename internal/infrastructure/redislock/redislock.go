// Package redislock provides the payout drive lock across processes.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/usecase/payout"
)

const (
	DefaultExpiry = time.Minute
	keyPrefix     = "lock:"
)

// Locker holds a redsync mutex per key and keeps extending it until unlock.
// When an extension fails the lock context is cancelled with
// payout.ErrLockLost.
type Locker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	log    *zap.Logger
}

func New(client redis.UniversalClient, expiry time.Duration, log *zap.Logger) *Locker {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
		log:    log,
	}
}

func (l *Locker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	mutex := l.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isContention(err) {
			return nil, nil, payout.ErrLocked
		}
		return nil, nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(mutex, cancel, stop, done)

	var once sync.Once
	return lockCtx, func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(nil)

			releaseCtx, release := context.WithTimeout(context.Background(), 5*time.Second)
			defer release()
			if ok, err := mutex.UnlockContext(releaseCtx); !ok || err != nil {
				l.log.Warn("release lock failed", zap.String("key", key), zap.Bool("released", ok), zap.Error(err))
			}
		})
	}, nil
}

func (l *Locker) keepAlive(mutex *redsync.Mutex, lost context.CancelCauseFunc, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.expiry / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.expiry/3)
			ok, err := mutex.ExtendContext(ctx)
			cancel()
			if !ok || err != nil {
				l.log.Warn("extend lock failed, releasing ownership", zap.String("key", mutex.Name()), zap.Error(err))
				lost(fmt.Errorf("%w: %s", payout.ErrLockLost, mutex.Name()))
				return
			}
		}
	}
}

func isContention(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) ||
		errors.As(err, &taken) ||
		strings.Contains(err.Error(), "lock already taken")
}
