package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/usecase/payout"
)

type PayoutService interface {
	Submit(ctx context.Context, req payout.Request) (*entity.Payout, bool, error)
	Complete(ctx context.Context, p *entity.Payout, created bool) (*payout.Response, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
}

type Scheduler interface {
	Enqueue(id uuid.UUID) bool
}

type Handler struct {
	payouts PayoutService
	runner  Scheduler
	log     *zap.Logger
}

func NewHandler(payouts PayoutService, runner Scheduler, log *zap.Logger) *Handler {
	return &Handler{payouts: payouts, runner: runner, log: log}
}

type submitRequest struct {
	IdempotencyKey string          `json:"idempotencyKey"`
	Wait           bool            `json:"wait"`
	Amount         decimal.Decimal `json:"amount"`
	SourceCurrency string          `json:"sourceCurrency"`
	DestCurrency   string          `json:"destCurrency"`
	Method         string          `json:"method"`
	SourceID       string          `json:"sourceId"`
	Beneficiary    struct {
		Name          string `json:"name"`
		Country       string `json:"country"`
		AccountNumber string `json:"accountNumber"`
		BankCode      string `json:"bankCode"`
		BankName      string `json:"bankName"`
		MSISDN        string `json:"msisdn"`
	} `json:"beneficiary"`
}

func (h *Handler) GetPayout(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := uuid.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid payout id")
	}

	p, err := h.payouts.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	if p.UserID() != auth.UserFrom(ctx) {
		return nil, status.Error(codes.NotFound, "payout not found")
	}

	return structpb.NewStruct(payoutFields(p))
}

// SubmitPayout accepts the same fields as the HTTP body plus idempotencyKey
// and wait.
func (h *Handler) SubmitPayout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	var req submitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	p, created, err := h.payouts.Submit(ctx, payout.Request{
		UserID:         auth.UserFrom(ctx),
		IdempotencyKey: req.IdempotencyKey,
		Amount:         req.Amount,
		SourceCurrency: req.SourceCurrency,
		DestCurrency:   req.DestCurrency,
		Method:         entity.Method(req.Method),
		SourceID:       req.SourceID,
		Beneficiary: entity.Beneficiary{
			Name:          req.Beneficiary.Name,
			Country:       req.Beneficiary.Country,
			AccountNumber: req.Beneficiary.AccountNumber,
			BankCode:      req.Beneficiary.BankCode,
			BankName:      req.Beneficiary.BankName,
			MSISDN:        req.Beneficiary.MSISDN,
		},
	})
	if err != nil {
		return nil, toStatus(err)
	}

	if !req.Wait {
		if !p.Status().IsTerminal() {
			h.runner.Enqueue(p.ID())
		}
		fields := payoutFields(p)
		fields["idempotentReplay"] = !created
		return structpb.NewStruct(fields)
	}

	if _, err := h.payouts.Complete(ctx, p, created); err != nil {
		if ctx.Err() != nil {
			h.runner.Enqueue(p.ID())
		}
		return nil, toStatus(err)
	}

	done, err := h.payouts.Get(ctx, p.ID())
	if err != nil {
		return nil, toStatus(err)
	}
	fields := payoutFields(done)
	fields["idempotentReplay"] = !created
	return structpb.NewStruct(fields)
}

func payoutFields(p *entity.Payout) map[string]any {
	return map[string]any{
		"id":                 p.ID().String(),
		"correlationId":      p.CorrelationID(),
		"overallStatus":      string(p.Status()),
		"providerAStatus":    string(p.FundsStatus()),
		"providerAReference": p.FundsReference(),
		"providerBStatus":    string(p.PayoutStatus()),
		"providerBReference": p.PayoutReference(),
		"failureReason":      p.FailureReason(),
		"amount":             p.SourceAmount().String(),
		"sourceCurrency":     p.SourceCurrency(),
		"destCurrency":       p.DestCurrency(),
		"createdAt":          p.CreatedAt().Format(time.RFC3339Nano),
		"updatedAt":          p.UpdatedAt().Format(time.RFC3339Nano),
	}
}

func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, payout.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, payout.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, payout.ErrProviderRejected), errors.Is(err, payout.ErrReplayedFailure):
		code = codes.FailedPrecondition
	case errors.Is(err, payout.ErrProviderUnavailable):
		code = codes.Unavailable
	case errors.Is(err, payout.ErrSettlementTimeout), errors.Is(err, payout.ErrPayoutTimeout),
		errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
