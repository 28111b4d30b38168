package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/Xausdorf/payout-hub/internal/domain/provider"
	"github.com/Xausdorf/payout-hub/internal/usecase/routing"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrProviderRejected    = errors.New("provider rejected")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrSettlementTimeout   = errors.New("settlement timeout")
	ErrPayoutTimeout       = errors.New("payout timeout")
	// ErrReplayedFailure is returned in wait mode when the idempotency key
	// resolves to a payout that had already failed.
	ErrReplayedFailure = errors.New("payout already failed")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify maps adapter and routing errors onto the usecase taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProviderRejected),
		errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrSettlementTimeout),
		errors.Is(err, ErrPayoutTimeout):
		return err
	case errors.Is(err, routing.ErrRoutingResolution), errors.Is(err, provider.ErrRejected):
		return fmt.Errorf("%w: %w", ErrProviderRejected, err)
	case errors.Is(err, provider.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	default:
		return err
	}
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
