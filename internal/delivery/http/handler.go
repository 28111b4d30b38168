package http //nolint:revive // directory-based package name, imported with alias

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/usecase/payout"
)

const maxBodyBytes = 1 << 20

type PayoutService interface {
	Submit(ctx context.Context, req payout.Request) (*entity.Payout, bool, error)
	Complete(ctx context.Context, p *entity.Payout, created bool) (*payout.Response, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
}

// Scheduler drives payouts in the background.
type Scheduler interface {
	Enqueue(id uuid.UUID) bool
}

type ReceiptRenderer interface {
	Execute(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type Handler struct {
	payouts  PayoutService
	runner   Scheduler
	receipts ReceiptRenderer
	log      *zap.Logger
}

func NewHandler(payouts PayoutService, runner Scheduler, receipts ReceiptRenderer, log *zap.Logger) *Handler {
	return &Handler{
		payouts:  payouts,
		runner:   runner,
		receipts: receipts,
		log:      log,
	}
}

type BeneficiaryRequest struct {
	Name          string `json:"name"`
	Country       string `json:"country"`
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
	MSISDN        string `json:"msisdn"`
}

type CreatePayoutRequest struct {
	Amount         decimal.Decimal    `json:"amount"`
	SourceCurrency string             `json:"sourceCurrency"`
	DestCurrency   string             `json:"destCurrency"`
	Method         string             `json:"method"`
	SourceID       string             `json:"sourceId"`
	Beneficiary    BeneficiaryRequest `json:"beneficiary"`
}

type AcceptedResponse struct {
	OK               bool   `json:"ok"`
	ID               string `json:"id"`
	CorrelationID    string `json:"correlationId"`
	OverallStatus    string `json:"overallStatus"`
	IdempotentReplay bool   `json:"idempotentReplay,omitempty"`
}

type ProviderAResponse struct {
	ReferenceID string `json:"referenceId"`
	Settled     bool   `json:"settled"`
}

type ProviderBResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type CompletedResponse struct {
	OK               bool              `json:"ok"`
	ID               string            `json:"id"`
	CorrelationID    string            `json:"correlationId"`
	ProviderA        ProviderAResponse `json:"providerA"`
	ProviderB        ProviderBResponse `json:"providerB"`
	IdempotentReplay bool              `json:"idempotentReplay,omitempty"`
}

type PayoutResponse struct {
	ID                 string    `json:"id"`
	CorrelationID      string    `json:"correlationId"`
	OverallStatus      string    `json:"overallStatus"`
	ProviderAStatus    string    `json:"providerAStatus"`
	ProviderAReference string    `json:"providerAReference,omitempty"`
	ProviderBStatus    string    `json:"providerBStatus"`
	ProviderBReference string    `json:"providerBReference,omitempty"`
	FailureReason      string    `json:"failureReason,omitempty"`
	Amount             string    `json:"amount"`
	SourceCurrency     string    `json:"sourceCurrency"`
	DestCurrency       string    `json:"destCurrency"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// HandleCreatePayout creates the payout and hands it to the runner. With
// ?wait=true it drives the payout inline and answers once it is terminal;
// if the request is cut short the runner takes over and the answer is 202.
func (h *Handler) HandleCreatePayout(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("wait must be a boolean"))
		return
	}

	var body CreatePayoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid json"))
		return
	}

	p, created, err := h.payouts.Submit(r.Context(), payout.Request{
		UserID:         auth.UserFrom(r.Context()),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Amount:         body.Amount,
		SourceCurrency: body.SourceCurrency,
		DestCurrency:   body.DestCurrency,
		Method:         entity.Method(body.Method),
		SourceID:       body.SourceID,
		Beneficiary: entity.Beneficiary{
			Name:          body.Beneficiary.Name,
			Country:       body.Beneficiary.Country,
			AccountNumber: body.Beneficiary.AccountNumber,
			BankCode:      body.Beneficiary.BankCode,
			BankName:      body.Beneficiary.BankName,
			MSISDN:        body.Beneficiary.MSISDN,
		},
	})
	if err != nil {
		h.writeUsecaseError(w, "", err)
		return
	}

	if !wait {
		if !p.Status().IsTerminal() {
			h.runner.Enqueue(p.ID())
		}
		writeJSON(w, http.StatusAccepted, accepted(p, !created))
		return
	}

	resp, err := h.payouts.Complete(r.Context(), p, created)
	if err != nil {
		if r.Context().Err() != nil {
			h.log.Info("wait cut short, payout handed to runner",
				zap.String("payout_id", p.ID().String()),
				zap.Error(err),
			)
			h.runner.Enqueue(p.ID())
			writeJSON(w, http.StatusAccepted, accepted(p, !created))
			return
		}
		h.writeUsecaseError(w, p.ID().String(), err)
		return
	}

	writeJSON(w, http.StatusOK, CompletedResponse{
		OK:            true,
		ID:            resp.ID,
		CorrelationID: resp.CorrelationID,
		ProviderA: ProviderAResponse{
			ReferenceID: resp.FundsReference,
			Settled:     resp.FundsSettled,
		},
		ProviderB: ProviderBResponse{
			ID:     resp.PayoutReference,
			Status: string(resp.PayoutStatus),
		},
		IdempotentReplay: resp.IdempotentReplay,
	})
}

func (h *Handler) HandleGetPayout(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPayout(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, PayoutResponse{
		ID:                 p.ID().String(),
		CorrelationID:      p.CorrelationID(),
		OverallStatus:      string(p.Status()),
		ProviderAStatus:    string(p.FundsStatus()),
		ProviderAReference: p.FundsReference(),
		ProviderBStatus:    string(p.PayoutStatus()),
		ProviderBReference: p.PayoutReference(),
		FailureReason:      p.FailureReason(),
		Amount:             p.SourceAmount().String(),
		SourceCurrency:     p.SourceCurrency(),
		DestCurrency:       p.DestCurrency(),
		CreatedAt:          p.CreatedAt(),
		UpdatedAt:          p.UpdatedAt(),
	})
}

func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPayout(w, r)
	if !ok {
		return
	}

	png, err := h.receipts.Execute(r.Context(), p.ID())
	if err != nil {
		h.log.Error("receipt generation failed", zap.String("payout_id", p.ID().String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("receipt generation failed"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if p.Status().IsTerminal() {
		w.Header().Set("Cache-Control", "private, max-age=3600")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	_, _ = w.Write(png)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownedPayout loads the payout named in the path. Payouts of other users
// are reported as not found.
func (h *Handler) ownedPayout(w http.ResponseWriter, r *http.Request) (*entity.Payout, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, payout.ErrNotFound)
		return nil, false
	}

	p, err := h.payouts.Get(r.Context(), id)
	if err != nil {
		h.writeUsecaseError(w, "", err)
		return nil, false
	}
	if p.UserID() != auth.UserFrom(r.Context()) {
		writeError(w, http.StatusNotFound, payout.ErrNotFound)
		return nil, false
	}
	return p, true
}

func (h *Handler) writeUsecaseError(w http.ResponseWriter, id string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error("payout request failed", zap.String("payout_id", id), zap.Error(err))
	}
	writeJSON(w, code, ErrorResponse{ID: id, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, payout.ErrValidation), errors.Is(err, payout.ErrProviderRejected):
		return http.StatusBadRequest
	case errors.Is(err, payout.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payout.ErrSettlementTimeout), errors.Is(err, payout.ErrPayoutTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, payout.ErrReplayedFailure):
		return http.StatusConflict
	case errors.Is(err, payout.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func accepted(p *entity.Payout, replay bool) AcceptedResponse {
	return AcceptedResponse{
		OK:               true,
		ID:               p.ID().String(),
		CorrelationID:    p.CorrelationID(),
		OverallStatus:    string(p.Status()),
		IdempotentReplay: replay,
	}
}

func parseWait(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("wait")
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}
