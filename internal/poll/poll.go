// Package poll repeatedly reads a status until it settles, fails or a time
// budget runs out.
package poll

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultBackoff  = 1.5
	DefaultMaxWait  = 15 * time.Minute
	MaxInterval     = 10 * time.Second
	MaxJitter       = 250 * time.Millisecond
)

var ErrInvalidOptions = errors.New("invalid poll options")

type Options struct {
	Interval time.Duration
	Backoff  float64
	MaxWait  time.Duration

	// Sleep and Jitter are replaced in tests. Nil means the real implementations.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() time.Duration
}

// Result reports how polling ended. On a nil error exactly one of Done,
// Failed and TimedOut is set.
type Result[T any] struct {
	Done     bool
	Failed   bool
	TimedOut bool
	Last     T
	Waited   time.Duration
	Attempts int
}

func (o Options) withDefaults() (Options, error) {
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.Backoff == 0 {
		o.Backoff = DefaultBackoff
	}
	if o.MaxWait == 0 {
		o.MaxWait = DefaultMaxWait
	}
	if o.Interval < 0 || o.MaxWait < 0 || o.Backoff < 1 {
		return o, fmt.Errorf("%w: interval=%s backoff=%v maxWait=%s", ErrInvalidOptions, o.Interval, o.Backoff, o.MaxWait)
	}
	if o.Sleep == nil {
		o.Sleep = SleepContext
	}
	if o.Jitter == nil {
		o.Jitter = RandomJitter
	}
	return o, nil
}

// Until calls check until isFail or isDone accepts its response, or until
// MaxWait of sleeping has accumulated. A check error aborts immediately.
func Until[T any](
	ctx context.Context,
	opts Options,
	check func(ctx context.Context) (T, error),
	isDone func(T) bool,
	isFail func(T) bool,
) (Result[T], error) {
	var res Result[T]

	opts, err := opts.withDefaults()
	if err != nil {
		return res, err
	}

	interval := opts.Interval
	for {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("poll aborted: %w", err)
		}

		last, err := check(ctx)
		res.Attempts++
		if err != nil {
			return res, err
		}
		res.Last = last

		switch {
		case isFail(last):
			res.Failed = true
			return res, nil
		case isDone(last):
			res.Done = true
			return res, nil
		}

		if res.Waited >= opts.MaxWait {
			res.TimedOut = true
			return res, nil
		}

		d := interval + opts.Jitter()
		if remaining := opts.MaxWait - res.Waited; d > remaining {
			d = remaining
		}
		if err := opts.Sleep(ctx, d); err != nil {
			return res, fmt.Errorf("poll aborted: %w", err)
		}
		res.Waited += d

		interval = nextInterval(interval, opts.Backoff)
	}
}

func nextInterval(cur time.Duration, backoff float64) time.Duration {
	next := time.Duration(float64(cur) * backoff)
	if next > MaxInterval {
		return MaxInterval
	}
	return next
}

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RandomJitter returns a duration in [0, MaxJitter).
func RandomJitter() time.Duration {
	return rand.N(MaxJitter) //nolint:gosec // jitter, not a secret
}
