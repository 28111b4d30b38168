package payout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/repository"
)

const (
	DefaultConcurrency   = 16
	DefaultSweepInterval = time.Minute
	DefaultStaleAfter    = 5 * time.Minute
	recoverBatch         = 500
)

// Driver runs a payout saga to a terminal state.
type Driver interface {
	Drive(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
}

type RunnerConfig struct {
	Concurrency   int64
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

// Runner drives payouts in the background with bounded concurrency and
// picks up payouts left unfinished by a crash or a dropped request.
type Runner struct {
	driver Driver
	uow    repository.UnitOfWork
	cfg    RunnerConfig
	log    *zap.Logger

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
}

func NewRunner(driver Driver, uow repository.UnitOfWork, cfg RunnerConfig, log *zap.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		driver:   driver,
		uow:      uow,
		cfg:      cfg,
		log:      log,
		sem:      semaphore.NewWeighted(cfg.Concurrency),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[uuid.UUID]struct{}),
	}
}

// Enqueue schedules a drive of id. It returns false when the payout is
// already being driven by this runner or the runner is shut down.
func (r *Runner) Enqueue(id uuid.UUID) bool {
	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return false
	}
	if _, ok := r.inflight[id]; ok {
		r.mu.Unlock()
		return false
	}
	r.inflight[id] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(id)
	return true
}

func (r *Runner) run(id uuid.UUID) {
	defer func() {
		r.mu.Lock()
		delete(r.inflight, id)
		r.mu.Unlock()
		r.wg.Done()
	}()

	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		return
	}
	defer r.sem.Release(1)

	p, err := r.driver.Drive(r.ctx, id)
	switch {
	case errors.Is(err, ErrLocked):
		r.log.Debug("payout driven elsewhere", zap.String("payout_id", id.String()))
	case errors.Is(err, ErrLockLost):
		r.log.Warn("payout drive lost its lock, left for the sweep", zap.String("payout_id", id.String()), zap.Error(err))
	case r.ctx.Err() != nil:
		r.log.Info("payout drive stopped by shutdown", zap.String("payout_id", id.String()))
	case err != nil:
		r.log.Warn("payout drive ended with error", zap.String("payout_id", id.String()), zap.Error(err))
	default:
		r.log.Info("payout drive finished",
			zap.String("payout_id", id.String()),
			zap.String("status", string(p.Status())),
		)
	}
}

// Recover enqueues every unfinished payout.
func (r *Runner) Recover(ctx context.Context) (int, error) {
	return r.enqueueUnfinished(ctx, time.Now().UTC())
}

// Run sweeps for stale unfinished payouts until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			n, err := r.enqueueUnfinished(ctx, time.Now().UTC().Add(-r.cfg.StaleAfter))
			if err != nil {
				r.log.Error("payout sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				r.log.Info("payout sweep resumed stale payouts", zap.Int("count", n))
			}
		}
	}
}

func (r *Runner) enqueueUnfinished(ctx context.Context, updatedBefore time.Time) (int, error) {
	list, err := r.uow.Payouts().ListUnfinished(ctx, updatedBefore, recoverBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range list {
		if r.Enqueue(p.ID()) {
			n++
		}
	}
	return n, nil
}

// Shutdown cancels running drives and waits for them to return.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
