package wallet

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, AppHandle: "payout.app", AppSecret: "app-secret"}, zap.NewNop())
}

func TestMove_Accepted(t *testing.T) {
	var got transferRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfer", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, sign("app-secret", body), r.Header.Get("authsignature"))
		assert.Equal(t, sign("user-key", body), r.Header.Get("usersignature"))
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"success":true,"status":"SUCCESS","transaction_id":"tx-1"}`))
	})

	res, err := c.Move(context.Background(), provider.MoveRequest{
		Amount:            decimal.RequireFromString("12.34"),
		Currency:          "USD",
		WalletHandle:      "ada.wallet",
		WalletCredential:  "user-key",
		SourceID:          "src-1",
		DestinationHandle: "company.wallet",
		IdempotencyToken:  "pay_1",
		Descriptor:        "cor_1",
	})
	require.NoError(t, err)

	assert.Equal(t, "tx-1", res.ReferenceID)
	assert.Equal(t, entity.FundsPending, res.Status)
	assert.Equal(t, int64(1234), got.Amount)
	assert.Equal(t, "pay_1", got.Header.Reference)
	assert.Equal(t, "ada.wallet", got.Header.UserHandle)
	assert.Equal(t, "payout.app", got.Header.AppHandle)
	assert.Equal(t, "company.wallet", got.DestinationHandle)
}

func TestMove_NotAccepted(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"status":"FAILURE","message":"insufficient funds"}`))
	})

	res, err := c.Move(context.Background(), provider.MoveRequest{Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, entity.FundsFailed, res.Status)
	assert.Equal(t, "FAILURE", res.RawStatus)
}

func TestMove_HTTPErrors(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"bad request", http.StatusBadRequest, provider.ErrRejected},
		{"unauthorized", http.StatusUnauthorized, provider.ErrRejected},
		{"throttled", http.StatusTooManyRequests, provider.ErrUnavailable},
		{"server error", http.StatusBadGateway, provider.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"message":"nope"}`, tt.code)
			})
			_, err := c.Move(context.Background(), provider.MoveRequest{Amount: decimal.NewFromInt(1)})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want entity.FundsStatus
	}{
		{"status field", `{"transactions":[{"transaction_id":"tx-1","status":"success"}]}`, entity.FundsCompleted},
		{"transaction_status field", `{"transactions":[{"transaction_id":"tx-1","transaction_status":"reversed"}]}`, entity.FundsFailed},
		{"top level status", `{"transactions":[],"transaction_status":"completed"}`, entity.FundsCompleted},
		{"first entry when id differs", `{"transactions":[{"transaction_id":"other","status":"queued"}]}`, entity.FundsPending},
		{"nothing yet", `{"transactions":[]}`, entity.FundsPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/get_transactions", r.URL.Path)
				var req transactionsRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "tx-1", req.SearchFilters.TransactionID)
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := c.Status(context.Background(), provider.FundsStatusQuery{ReferenceID: "tx-1", WalletHandle: "ada.wallet"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for range 5 {
		_, err := c.Status(context.Background(), provider.FundsStatusQuery{ReferenceID: "tx-1"})
		require.ErrorIs(t, err, provider.ErrUnavailable)
	}
	_, err := c.Status(context.Background(), provider.FundsStatusQuery{ReferenceID: "tx-1"})
	require.ErrorIs(t, err, provider.ErrUnavailable)
	assert.Equal(t, int32(5), calls.Load(), "open breaker short-circuits the sixth call")
}
