package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/event"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
	"github.com/Xausdorf/payout-hub/internal/domain/repository"
	"github.com/Xausdorf/payout-hub/internal/poll"
	"github.com/Xausdorf/payout-hub/internal/usecase/routing"
)

const (
	DefaultSourceCurrency = "USD"

	correlationPrefix = "cor_"
	fundsTokenPrefix  = "pay_"
	payoutTokenPrefix = "seq_"
	payoutReason      = "other"

	// amountScale is the number of decimal places an amount may carry.
	amountScale = 2
)

type Request struct {
	UserID         string
	IdempotencyKey string
	Amount         decimal.Decimal
	SourceCurrency string
	DestCurrency   string
	Method         entity.Method
	SourceID       string
	Beneficiary    entity.Beneficiary
}

// Response is the outcome of a payout driven to completion.
type Response struct {
	ID               string
	CorrelationID    string
	FundsReference   string
	FundsSettled     bool
	PayoutReference  string
	PayoutStatus     entity.PayoutStatus
	Status           entity.OverallStatus
	IdempotentReplay bool
}

// Router resolves provider addressing for a beneficiary. Forget is called
// when the provider rejects a payout sent to a resolved route.
type Router interface {
	Route(ctx context.Context, b entity.Beneficiary) (*routing.Route, error)
	Forget(ctx context.Context, b entity.Beneficiary, route *routing.Route)
}

type Config struct {
	CompanyWallet string
	FundsPoll     poll.Options
	PayoutPoll    poll.Options
}

type UseCase struct {
	uow     repository.UnitOfWork
	funds   provider.FundsMover
	payouts provider.PayoutCreator
	router  Router
	locker  Locker
	events  event.Publisher
	cfg     Config
	log     *zap.Logger
}

func NewUseCase(
	uow repository.UnitOfWork,
	funds provider.FundsMover,
	payouts provider.PayoutCreator,
	router Router,
	locker Locker,
	events event.Publisher,
	cfg Config,
	log *zap.Logger,
) *UseCase {
	return &UseCase{
		uow:     uow,
		funds:   funds,
		payouts: payouts,
		router:  router,
		locker:  locker,
		events:  events,
		cfg:     cfg,
		log:     log,
	}
}

// Submit validates the request and creates the payout record, or returns the
// record already stored under the same idempotency key. The bool reports
// whether a new record was created.
func (uc *UseCase) Submit(ctx context.Context, req Request) (*entity.Payout, bool, error) {
	req = normalize(req)
	if err := validate(req); err != nil {
		return nil, false, err
	}

	profile, err := uc.uow.Profiles().FindByUserID(ctx, req.UserID)
	if err != nil {
		return nil, false, err
	}
	if profile == nil {
		return nil, false, fmt.Errorf("%w: wallet profile for user %s", ErrNotFound, req.UserID)
	}

	existing, err := uc.uow.Payouts().FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return replay(existing, req.UserID)
	}

	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.Payouts().LockIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		return nil, false, err
	}

	existing, err = tx.Payouts().FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return replay(existing, req.UserID)
	}

	sourceID := req.SourceID
	if sourceID == "" {
		sourceID = profile.SourceID
	}

	p := entity.NewPayout(entity.PayoutParams{
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  correlationPrefix + ulid.Make().String(),
		SourceID:       sourceID,
		SourceAmount:   req.Amount,
		SourceCurrency: req.SourceCurrency,
		DestCurrency:   req.DestCurrency,
		Beneficiary:    req.Beneficiary,
	})

	if err := tx.Payouts().Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			_ = tx.Rollback(ctx)
			return uc.afterDuplicate(ctx, req)
		}
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	uc.log.Info("payout created",
		zap.String("payout_id", p.ID().String()),
		zap.String("correlation_id", p.CorrelationID()),
		zap.String("user_id", p.UserID()),
	)
	uc.publish(ctx, p)

	return p, true, nil
}

// Execute submits the payout and drives it to a terminal state before
// returning. A terminal failure is reported as an error.
func (uc *UseCase) Execute(ctx context.Context, req Request) (*Response, error) {
	p, created, err := uc.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return uc.Complete(ctx, p, created)
}

// Complete drives a submitted payout to a terminal state, or waits for the
// driver that currently owns it or takes it over.
func (uc *UseCase) Complete(ctx context.Context, p *entity.Payout, created bool) (*Response, error) {
	driven, err := uc.Drive(ctx, p.ID())
	switch {
	case errors.Is(err, ErrLocked), errors.Is(err, ErrLockLost):
		driven, err = uc.awaitTerminal(ctx, p.ID())
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	// Failures of this drive were returned above; a failed record here was
	// finished by an earlier request or another driver.
	if driven.Status() == entity.StatusFailed {
		return nil, fmt.Errorf("%w: %s", ErrReplayedFailure, driven.FailureReason())
	}

	return toResponse(driven, !created), nil
}

// Get returns the stored payout.
func (uc *UseCase) Get(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	p, err := uc.uow.Payouts().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: payout %s", ErrNotFound, id)
	}
	return p, nil
}

// awaitTerminal waits for a payout owned by another driver.
func (uc *UseCase) awaitTerminal(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	opts := uc.cfg.FundsPoll
	opts.MaxWait = waitBudget(uc.cfg.FundsPoll) + waitBudget(uc.cfg.PayoutPoll)

	res, err := poll.Until(ctx, opts,
		func(ctx context.Context) (*entity.Payout, error) { return uc.Get(ctx, id) },
		func(p *entity.Payout) bool { return p.Status() == entity.StatusCompleted },
		func(p *entity.Payout) bool { return p.Status() == entity.StatusFailed },
	)
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, fmt.Errorf("%w: payout %s still %s", ErrPayoutTimeout, id, res.Last.Status())
	}
	return res.Last, nil
}

func (uc *UseCase) afterDuplicate(ctx context.Context, req Request) (*entity.Payout, bool, error) {
	existing, err := uc.uow.Payouts().FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("idempotency key %q conflicted but no payout found", req.IdempotencyKey)
	}
	return replay(existing, req.UserID)
}

func replay(existing *entity.Payout, userID string) (*entity.Payout, bool, error) {
	if existing.UserID() != userID {
		return nil, false, validationError("idempotency key already used")
	}
	return existing, false, nil
}

func toResponse(p *entity.Payout, replayed bool) *Response {
	return &Response{
		ID:               p.ID().String(),
		CorrelationID:    p.CorrelationID(),
		FundsReference:   p.FundsReference(),
		FundsSettled:     p.FundsStatus() == entity.FundsCompleted,
		PayoutReference:  p.PayoutReference(),
		PayoutStatus:     p.PayoutStatus(),
		Status:           p.Status(),
		IdempotentReplay: replayed,
	}
}

func normalize(req Request) Request {
	req.UserID = strings.TrimSpace(req.UserID)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	req.SourceCurrency = strings.ToUpper(strings.TrimSpace(req.SourceCurrency))
	if req.SourceCurrency == "" {
		req.SourceCurrency = DefaultSourceCurrency
	}
	req.DestCurrency = strings.ToUpper(strings.TrimSpace(req.DestCurrency))

	b := req.Beneficiary
	b.Name = strings.TrimSpace(b.Name)
	b.Country = strings.ToUpper(strings.TrimSpace(b.Country))
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.BankCode = strings.TrimSpace(b.BankCode)
	b.BankName = strings.TrimSpace(b.BankName)
	b.MSISDN = strings.TrimSpace(b.MSISDN)
	b.Method = req.Method
	req.Beneficiary = b
	return req
}

func validate(req Request) error {
	switch {
	case req.UserID == "":
		return validationError("user is required")
	case !req.Amount.IsPositive():
		return validationError("amount must be positive")
	case !req.Amount.Equal(req.Amount.Round(amountScale)):
		return validationError("amount must have at most %d decimal places", amountScale)
	case len(req.DestCurrency) != 3:
		return validationError("destCurrency must be a 3-letter code")
	case len(req.SourceCurrency) != 3:
		return validationError("sourceCurrency must be a 3-letter code")
	case !req.Method.Valid():
		return validationError("method must be %s or %s", entity.MethodBankTransfer, entity.MethodMobileMoney)
	case req.Beneficiary.Name == "":
		return validationError("beneficiary.name is required")
	case len(req.Beneficiary.Country) != 2:
		return validationError("beneficiary.country must be a 2-letter code")
	}

	if req.Method == entity.MethodMobileMoney {
		if req.Beneficiary.MSISDN == "" && req.Beneficiary.AccountNumber == "" {
			return validationError("beneficiary.msisdn is required for mobile_money")
		}
		return nil
	}
	if req.Beneficiary.AccountNumber == "" {
		return validationError("beneficiary.accountNumber is required")
	}
	return nil
}

func waitBudget(o poll.Options) time.Duration {
	if o.MaxWait > 0 {
		return o.MaxWait
	}
	return poll.DefaultMaxWait
}
