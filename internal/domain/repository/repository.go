package repository

//go:generate mockgen -source=repository.go -destination=mocks/repository.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrConflict  = errors.New("concurrent update")
)

type PayoutRepository interface {
	Create(ctx context.Context, p *entity.Payout) error
	// Update persists p only if the stored version still matches p.Version().
	Update(ctx context.Context, p *entity.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
	// FindByIdempotencyKey returns nil, nil when no payout uses the key.
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payout, error)
	ListUnfinished(ctx context.Context, updatedBefore time.Time, limit int) ([]*entity.Payout, error)
	LockIdempotencyKey(ctx context.Context, key string) error
}

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*entity.WalletProfile, error)
}

type UnitOfWork interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	Payouts() PayoutRepository
	Profiles() ProfileRepository
}
