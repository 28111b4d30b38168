package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/event"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
	"github.com/Xausdorf/payout-hub/internal/poll"
)

func lockKey(id uuid.UUID) string {
	return "payout:" + id.String()
}

// Drive advances the payout from its persisted status until it is terminal.
// Every transition is stored before the next step starts, so a drive that
// stops early resumes from the last checkpoint. Cancellation of ctx leaves
// the record as it is, and so does losing the drive lock, which is reported
// as ErrLockLost.
func (uc *UseCase) Drive(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	ctx, unlock, err := uc.locker.Lock(ctx, lockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status().IsTerminal() {
		return p, nil
	}

	profile, err := uc.uow.Profiles().FindByUserID(ctx, p.UserID())
	if err != nil {
		return p, err
	}
	if profile == nil {
		return p, uc.fail(ctx, p, fmt.Errorf("%w: wallet profile for user %s", ErrNotFound, p.UserID()))
	}

	log := uc.log.With(
		zap.String("payout_id", p.ID().String()),
		zap.String("correlation_id", p.CorrelationID()),
	)

	for !p.Status().IsTerminal() {
		before := p.Status()

		var stepErr error
		switch {
		case before == entity.StatusCreated:
			stepErr = uc.moveFunds(ctx, p, profile)
		case before == entity.StatusProviderASettling:
			stepErr = uc.awaitFunds(ctx, p, profile)
		case before == entity.StatusPayoutProcessing && p.PayoutReference() == "":
			stepErr = uc.createPayout(ctx, p, profile)
		case before == entity.StatusPayoutProcessing:
			stepErr = uc.awaitPayout(ctx, p)
		default:
			stepErr = fmt.Errorf("unknown payout status %q", before)
		}

		if stepErr != nil {
			if lockLost(ctx) {
				log.Warn("payout drive lost its lock", zap.String("status", string(before)), zap.Error(stepErr))
				return p, fmt.Errorf("%w: %w", ErrLockLost, stepErr)
			}
			if isCancellation(ctx, stepErr) {
				log.Info("payout drive interrupted", zap.String("status", string(before)), zap.Error(stepErr))
				return p, stepErr
			}
			return p, uc.fail(ctx, p, stepErr)
		}

		if err := uc.save(ctx, p); err != nil {
			if lockLost(ctx) {
				return p, fmt.Errorf("%w: %w", ErrLockLost, err)
			}
			return p, err
		}
		if lockLost(ctx) {
			log.Warn("payout drive lost its lock", zap.String("status", string(p.Status())))
			return p, ErrLockLost
		}
		log.Info("payout checkpoint",
			zap.String("from", string(before)),
			zap.String("status", string(p.Status())),
			zap.String("provider_a_status", string(p.FundsStatus())),
			zap.String("provider_b_status", string(p.PayoutStatus())),
		)
	}

	return p, nil
}

func (uc *UseCase) moveFunds(ctx context.Context, p *entity.Payout, profile *entity.WalletProfile) error {
	res, err := uc.funds.Move(ctx, provider.MoveRequest{
		Amount:            p.SourceAmount(),
		Currency:          p.SourceCurrency(),
		WalletHandle:      profile.WalletHandle,
		WalletCredential:  profile.WalletCredential,
		SourceID:          p.SourceID(),
		DestinationHandle: uc.cfg.CompanyWallet,
		IdempotencyToken:  fundsTokenPrefix + p.ID().String(),
		Descriptor:        p.CorrelationID(),
	})
	if err != nil {
		return fmt.Errorf("move funds: %w", classify(err))
	}
	if res == nil || res.ReferenceID == "" || res.Status == entity.FundsFailed {
		raw := ""
		if res != nil {
			raw = res.RawStatus
		}
		return fmt.Errorf("%w: wallet transfer not accepted (status %q)", ErrProviderRejected, raw)
	}
	return p.MarkFundsMoving(res.ReferenceID)
}

func (uc *UseCase) awaitFunds(ctx context.Context, p *entity.Payout, profile *entity.WalletProfile) error {
	q := provider.FundsStatusQuery{
		ReferenceID:      p.FundsReference(),
		WalletHandle:     profile.WalletHandle,
		WalletCredential: profile.WalletCredential,
	}

	res, err := poll.Until(ctx, uc.cfg.FundsPoll,
		func(ctx context.Context) (entity.FundsStatus, error) { return uc.funds.Status(ctx, q) },
		func(s entity.FundsStatus) bool { return s == entity.FundsCompleted },
		func(s entity.FundsStatus) bool { return s == entity.FundsFailed },
	)
	switch {
	case err != nil:
		return fmt.Errorf("funds status: %w", classify(err))
	case res.Failed:
		return fmt.Errorf("%w: wallet transfer %s failed", ErrProviderRejected, q.ReferenceID)
	case res.TimedOut:
		return fmt.Errorf("%w: wallet transfer %s still %s after %s", ErrSettlementTimeout, q.ReferenceID, res.Last, res.Waited)
	}
	return p.MarkFundsSettled()
}

func (uc *UseCase) createPayout(ctx context.Context, p *entity.Payout, profile *entity.WalletProfile) error {
	b := p.Beneficiary()

	route, err := uc.router.Route(ctx, b)
	if err != nil {
		return fmt.Errorf("resolve route: %w", classify(err))
	}

	account := b.AccountNumber
	if b.Method == entity.MethodMobileMoney && b.MSISDN != "" {
		account = b.MSISDN
	}

	res, err := uc.payouts.Create(ctx, provider.CreatePayoutRequest{
		ChannelID:   route.ChannelID,
		SequenceID:  payoutTokenPrefix + p.ID().String(),
		Amount:      p.SourceAmount(),
		Currency:    p.DestCurrency(),
		Country:     b.Country,
		Reason:      payoutReason,
		ForceAccept: true,
		Sender: provider.Sender{
			Name:        profile.FullName(),
			Country:     profile.Country,
			Phone:       profile.Phone,
			Address:     profile.FullAddress(),
			DateOfBirth: profile.DateOfBirth,
			Email:       profile.Email,
			IDType:      profile.IDType,
			IDNumber:    profile.IDNumber,
		},
		Destination: provider.Destination{
			AccountName:   route.AccountName,
			AccountNumber: account,
			AccountType:   provider.ChannelTypeFor(b.Method),
			NetworkID:     route.NetworkID,
		},
	})
	if err != nil {
		if errors.Is(err, provider.ErrRejected) {
			uc.router.Forget(ctx, b, route)
		}
		return fmt.Errorf("create payout: %w", classify(err))
	}
	if res == nil || res.ID == "" || res.Status == entity.PayoutFailed {
		raw := ""
		if res != nil {
			raw = res.RawStatus
		}
		return fmt.Errorf("%w: disbursement not accepted (status %q)", ErrProviderRejected, raw)
	}
	return p.RecordPayoutCreated(res.ID)
}

func (uc *UseCase) awaitPayout(ctx context.Context, p *entity.Payout) error {
	ref := p.PayoutReference()

	res, err := poll.Until(ctx, uc.cfg.PayoutPoll,
		func(ctx context.Context) (entity.PayoutStatus, error) { return uc.payouts.Status(ctx, ref) },
		func(s entity.PayoutStatus) bool { return s == entity.PayoutCompleted },
		func(s entity.PayoutStatus) bool { return s == entity.PayoutFailed },
	)
	switch {
	case err != nil:
		return fmt.Errorf("payout status: %w", classify(err))
	case res.Failed:
		return fmt.Errorf("%w: disbursement %s failed", ErrProviderRejected, ref)
	case res.TimedOut:
		return fmt.Errorf("%w: disbursement %s still %s after %s", ErrPayoutTimeout, ref, res.Last, res.Waited)
	}
	return p.Complete()
}

// fail records cause on the payout and returns it. If the record cannot be
// stored both errors are returned.
func (uc *UseCase) fail(ctx context.Context, p *entity.Payout, cause error) error {
	if errors.Is(cause, entity.ErrTerminal) {
		return cause
	}
	if err := p.Fail(cause.Error()); err != nil {
		return errors.Join(cause, err)
	}

	// The failure must be persisted even when ctx was cancelled in between.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := uc.save(saveCtx, p); err != nil {
		uc.log.Error("failed to persist payout failure",
			zap.String("payout_id", p.ID().String()),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return errors.Join(cause, err)
	}

	uc.log.Warn("payout failed",
		zap.String("payout_id", p.ID().String()),
		zap.String("correlation_id", p.CorrelationID()),
		zap.String("provider_a_status", string(p.FundsStatus())),
		zap.String("provider_b_status", string(p.PayoutStatus())),
		zap.Error(cause),
	)
	return cause
}

func (uc *UseCase) save(ctx context.Context, p *entity.Payout) error {
	if err := uc.uow.Payouts().Update(ctx, p); err != nil {
		return fmt.Errorf("checkpoint payout %s: %w", p.ID(), err)
	}
	uc.publish(ctx, p)
	return nil
}

func (uc *UseCase) publish(ctx context.Context, p *entity.Payout) {
	err := uc.events.Publish(ctx, event.PayoutEvent{
		Type:          event.TypeStatusChanged,
		PayoutID:      p.ID().String(),
		CorrelationID: p.CorrelationID(),
		UserID:        p.UserID(),
		Status:        string(p.Status()),
		FundsStatus:   string(p.FundsStatus()),
		PayoutStatus:  string(p.PayoutStatus()),
		FailureReason: p.FailureReason(),
		Version:       p.Version(),
		OccurredAt:    p.UpdatedAt(),
	})
	if err != nil {
		uc.log.Warn("publish payout event failed",
			zap.String("payout_id", p.ID().String()),
			zap.Error(err),
		)
	}
}
