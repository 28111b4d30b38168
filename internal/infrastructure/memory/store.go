// Package memory is an in-process implementation of the repository ports,
// used when no database is configured and by scenario tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/repository"
)

type Store struct {
	mu       sync.Mutex
	payouts  map[uuid.UUID]entity.PayoutState
	byKey    map[string]uuid.UUID
	byCorr   map[string]uuid.UUID
	profiles map[string]entity.WalletProfile
}

func NewStore() *Store {
	return &Store{
		payouts:  make(map[uuid.UUID]entity.PayoutState),
		byKey:    make(map[string]uuid.UUID),
		byCorr:   make(map[string]uuid.UUID),
		profiles: make(map[string]entity.WalletProfile),
	}
}

func (s *Store) PutProfile(p entity.WalletProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// Count returns the number of stored payouts.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payouts)
}

// UnitOfWork holds the store lock for the whole transaction. Payouts created
// inside a transaction become visible to others on Commit.
type UnitOfWork struct {
	s      *Store
	inTx   bool
	done   bool
	staged []entity.PayoutState
}

func NewUnitOfWork(s *Store) *UnitOfWork {
	return &UnitOfWork{s: s}
}

func (u *UnitOfWork) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.Lock()
	return &UnitOfWork{s: u.s, inTx: true}, nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.inTx || u.done {
		return nil
	}
	for _, st := range u.staged {
		u.s.insert(st)
	}
	u.staged = nil
	u.done = true
	u.s.mu.Unlock()
	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.inTx || u.done {
		return nil
	}
	u.staged = nil
	u.done = true
	u.s.mu.Unlock()
	return nil
}

func (u *UnitOfWork) Payouts() repository.PayoutRepository {
	return &PayoutRepo{u: u}
}

func (u *UnitOfWork) Profiles() repository.ProfileRepository {
	return &ProfileRepo{u: u}
}

// lock takes the store lock unless the unit of work already holds it.
func (u *UnitOfWork) lock() func() {
	if u.inTx {
		return func() {}
	}
	u.s.mu.Lock()
	return u.s.mu.Unlock
}

func (s *Store) insert(st entity.PayoutState) {
	s.payouts[st.ID] = st
	s.byKey[st.IdempotencyKey] = st.ID
	s.byCorr[st.CorrelationID] = st.ID
}

type PayoutRepo struct {
	u *UnitOfWork
}

func (r *PayoutRepo) Create(_ context.Context, p *entity.Payout) error {
	defer r.u.lock()()

	st := p.State()
	if _, ok := r.findByKey(st.IdempotencyKey); ok {
		return repository.ErrDuplicate
	}
	if r.correlationTaken(st.CorrelationID) {
		return repository.ErrDuplicate
	}
	if _, ok := r.u.s.payouts[st.ID]; ok {
		return repository.ErrDuplicate
	}

	st.Version = 1
	if r.u.inTx {
		r.u.staged = append(r.u.staged, st)
	} else {
		r.u.s.insert(st)
	}
	p.SetVersion(st.Version)
	return nil
}

func (r *PayoutRepo) Update(_ context.Context, p *entity.Payout) error {
	defer r.u.lock()()

	st := p.State()
	stored, ok := r.u.s.payouts[st.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != st.Version {
		return repository.ErrConflict
	}

	st.Version++
	r.u.s.payouts[st.ID] = st
	p.SetVersion(st.Version)
	return nil
}

func (r *PayoutRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payout, error) {
	defer r.u.lock()()

	st, ok := r.u.s.payouts[id]
	if !ok {
		return nil, nil
	}
	return entity.ReconstructPayout(st), nil
}

func (r *PayoutRepo) FindByIdempotencyKey(_ context.Context, key string) (*entity.Payout, error) {
	defer r.u.lock()()

	st, ok := r.findByKey(key)
	if !ok {
		return nil, nil
	}
	return entity.ReconstructPayout(st), nil
}

func (r *PayoutRepo) ListUnfinished(_ context.Context, updatedBefore time.Time, limit int) ([]*entity.Payout, error) {
	defer r.u.lock()()

	states := make([]entity.PayoutState, 0)
	for _, st := range r.u.s.payouts {
		if st.Status.IsTerminal() || !st.UpdatedAt.Before(updatedBefore) {
			continue
		}
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].UpdatedAt.Before(states[j].UpdatedAt) })
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}

	out := make([]*entity.Payout, 0, len(states))
	for _, st := range states {
		out = append(out, entity.ReconstructPayout(st))
	}
	return out, nil
}

// LockIdempotencyKey is a no-op: a transaction already holds the store lock.
func (r *PayoutRepo) LockIdempotencyKey(_ context.Context, _ string) error {
	return nil
}

// findByKey looks at staged rows first, then committed ones. Callers hold
// the lock.
func (r *PayoutRepo) findByKey(key string) (entity.PayoutState, bool) {
	for _, st := range r.u.staged {
		if st.IdempotencyKey == key {
			return st, true
		}
	}
	id, ok := r.u.s.byKey[key]
	if !ok {
		return entity.PayoutState{}, false
	}
	return r.u.s.payouts[id], true
}

func (r *PayoutRepo) correlationTaken(corr string) bool {
	for _, st := range r.u.staged {
		if st.CorrelationID == corr {
			return true
		}
	}
	_, ok := r.u.s.byCorr[corr]
	return ok
}

type ProfileRepo struct {
	u *UnitOfWork
}

func (r *ProfileRepo) FindByUserID(_ context.Context, userID string) (*entity.WalletProfile, error) {
	defer r.u.lock()()

	p, ok := r.u.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
