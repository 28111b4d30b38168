package http //nolint:revive // directory-based package name, imported with alias

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/cache"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/events"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/memory"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/sandbox"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/qrgenerator"
	"github.com/Xausdorf/payout-hub/internal/poll"
	"github.com/Xausdorf/payout-hub/internal/usecase/payout"
	"github.com/Xausdorf/payout-hub/internal/usecase/receipt"
	"github.com/Xausdorf/payout-hub/internal/usecase/routing"
)

var testSecret = []byte("test-secret")

type server struct {
	router http.Handler
	store  *memory.Store
}

func newServer(t *testing.T) *server {
	t.Helper()

	store := memory.NewStore()
	for _, uid := range []string{"user-1", "user-2"} {
		store.PutProfile(entity.WalletProfile{
			UserID:       uid,
			WalletHandle: uid + ".wallet",
			SourceID:     "src-" + uid,
			FirstName:    "Ada",
			LastName:     "Obi",
			Country:      "US",
		})
	}

	uow := memory.NewUnitOfWork(store)
	disburser := sandbox.NewDisburser()
	fast := poll.Options{Interval: time.Millisecond, Backoff: 1, MaxWait: time.Second, Jitter: func() time.Duration { return 0 }}
	uc := payout.NewUseCase(
		uow,
		sandbox.NewWallet(),
		disburser,
		routing.NewResolver(disburser, cache.NewLRU(16, 0), zap.NewNop(), routing.DefaultVerifyCountries),
		payout.NewLocalLocker(),
		events.Nop{},
		payout.Config{CompanyWallet: "company.wallet", FundsPoll: fast, PayoutPoll: fast},
		zap.NewNop(),
	)
	runner := payout.NewRunner(uc, uow, payout.RunnerConfig{}, zap.NewNop())
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })

	h := NewHandler(uc, runner, receipt.NewUseCase(uc, qrgenerator.NewGenerator(128)), zap.NewNop())
	return &server{
		router: NewRouter(h, RouterConfig{Verifier: auth.NewVerifier(testSecret), CORSOrigins: []string{"*"}}, zap.NewNop()),
		store:  store,
	}
}

func token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := auth.Sign(testSecret, uid, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, target, uid string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, uid))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func payoutBody(account string) map[string]any {
	return map[string]any{
		"amount":       "100.50",
		"destCurrency": "NGN",
		"method":       "bank_transfer",
		"beneficiary": map[string]any{
			"name":          "Chidi Okafor",
			"country":       "NG",
			"accountNumber": account,
			"bankCode":      "044",
		},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/payouts", "", payoutBody(sandbox.SuccessAccount), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/payouts", "", payoutBody(sandbox.SuccessAccount), map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := auth.Sign([]byte("other-secret"), "user-1", jwt.RegisteredClaims{})
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/payouts/x", "", nil, map[string]string{"Authorization": "Bearer " + other})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := auth.Sign(testSecret, "user-1", jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))})
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/payouts/x", "", nil, map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, s.store.Count())
}

func TestCreatePayout_Async(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/payouts", "user-1", payoutBody(sandbox.SuccessAccount), map[string]string{"Idempotency-Key": "k-1"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	got := decode[AcceptedResponse](t, rec)
	assert.True(t, got.OK)
	assert.Equal(t, "created", got.OverallStatus)
	assert.Regexp(t, `^cor_[0-9A-Z]{26}$`, got.CorrelationID)

	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/payouts/"+got.ID, "user-1", nil, nil)
		var p PayoutResponse
		return rec.Code == http.StatusOK && json.Unmarshal(rec.Body.Bytes(), &p) == nil && p.OverallStatus == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	rec = s.do(t, http.MethodGet, "/payouts/"+got.ID, "user-1", nil, nil)
	p := decode[PayoutResponse](t, rec)
	assert.Equal(t, "completed", p.ProviderAStatus)
	assert.Equal(t, "completed", p.ProviderBStatus)
	assert.NotEmpty(t, p.ProviderBReference)
	assert.Equal(t, "100.5", p.Amount)
}

func TestCreatePayout_IdempotentReplay(t *testing.T) {
	s := newServer(t)
	headers := map[string]string{"Idempotency-Key": "same-key"}

	first := decode[AcceptedResponse](t, s.do(t, http.MethodPost, "/payouts", "user-1", payoutBody(sandbox.SuccessAccount), headers))
	rec := s.do(t, http.MethodPost, "/payouts", "user-1", payoutBody(sandbox.SuccessAccount), headers)
	require.Equal(t, http.StatusAccepted, rec.Code)

	second := decode[AcceptedResponse](t, rec)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, first.IdempotentReplay)
	assert.True(t, second.IdempotentReplay)
	assert.Equal(t, 1, s.store.Count())

	rec = s.do(t, http.MethodPost, "/payouts", "user-2", payoutBody(sandbox.SuccessAccount), headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePayout_Wait(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/payouts?wait=true", "user-1", payoutBody(sandbox.SuccessAccount), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[CompletedResponse](t, rec)
	assert.True(t, got.OK)
	assert.True(t, got.ProviderA.Settled)
	assert.NotEmpty(t, got.ProviderA.ReferenceID)
	assert.NotEmpty(t, got.ProviderB.ID)
	assert.Equal(t, "completed", got.ProviderB.Status)
}

func TestCreatePayout_WaitFailure(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/payouts?wait=1", "user-1", payoutBody(sandbox.FailureAccount), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	got := decode[ErrorResponse](t, rec)
	assert.False(t, got.OK)
	require.NotEmpty(t, got.ID)
	assert.NotEmpty(t, got.Error)

	p := decode[PayoutResponse](t, s.do(t, http.MethodGet, "/payouts/"+got.ID, "user-1", nil, nil))
	assert.Equal(t, "failed", p.OverallStatus)
	assert.Equal(t, "completed", p.ProviderAStatus)
	assert.Equal(t, "failed", p.ProviderBStatus)
	assert.NotEmpty(t, p.FailureReason)
}

func TestCreatePayout_BadRequests(t *testing.T) {
	s := newServer(t)

	noName := payoutBody(sandbox.SuccessAccount)
	noName["beneficiary"].(map[string]any)["name"] = ""

	badMethod := payoutBody(sandbox.SuccessAccount)
	badMethod["method"] = "cash"

	subCent := payoutBody(sandbox.SuccessAccount)
	subCent["amount"] = "0.004"

	tests := []struct {
		name   string
		target string
		uid    string
		body   any
		want   int
	}{
		{"missing beneficiary name", "/payouts", "user-1", noName, http.StatusBadRequest},
		{"unknown method", "/payouts", "user-1", badMethod, http.StatusBadRequest},
		{"sub-cent amount", "/payouts", "user-1", subCent, http.StatusBadRequest},
		{"not json", "/payouts", "user-1", "nope", http.StatusBadRequest},
		{"bad wait flag", "/payouts?wait=maybe", "user-1", payoutBody(sandbox.SuccessAccount), http.StatusBadRequest},
		{"no wallet profile", "/payouts", "user-3", payoutBody(sandbox.SuccessAccount), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.target, tt.uid, tt.body, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
	assert.Zero(t, s.store.Count())
}

func TestGetPayout_NotFound(t *testing.T) {
	s := newServer(t)
	created := decode[AcceptedResponse](t, s.do(t, http.MethodPost, "/payouts", "user-1", payoutBody(sandbox.SuccessAccount), nil))

	for _, target := range []string{
		"/payouts/not-a-uuid",
		"/payouts/8d8ac610-566d-4ef0-9c22-186b2a5ed793",
	} {
		rec := s.do(t, http.MethodGet, target, "user-1", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	rec := s.do(t, http.MethodGet, "/payouts/"+created.ID, "user-2", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceipt(t *testing.T) {
	s := newServer(t)
	created := decode[AcceptedResponse](t, s.do(t, http.MethodPost, "/payouts", "user-1", payoutBody(sandbox.SuccessAccount), nil))

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/payouts/%s/receipt.png", created.ID), "user-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	_, err := png.Decode(rec.Body)
	require.NoError(t, err)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/payouts/%s/receipt.png", created.ID), "user-2", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: amount", payout.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: routing", payout.ErrProviderRejected), http.StatusBadRequest},
		{payout.ErrNotFound, http.StatusNotFound},
		{payout.ErrSettlementTimeout, http.StatusRequestTimeout},
		{payout.ErrPayoutTimeout, http.StatusRequestTimeout},
		{payout.ErrReplayedFailure, http.StatusConflict},
		{payout.ErrProviderUnavailable, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
