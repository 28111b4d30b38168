package sandbox

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
)

func moveRequest(token string, amount int64) provider.MoveRequest {
	return provider.MoveRequest{
		Amount:            decimal.NewFromInt(amount),
		Currency:          "USD",
		WalletHandle:      "ada.wallet",
		DestinationHandle: "company.wallet",
		IdempotencyToken:  token,
	}
}

func TestWallet_SettlesAfterPolls(t *testing.T) {
	ctx := context.Background()
	w := NewWallet(WithSettleAfter(2))

	res, err := w.Move(ctx, moveRequest("pay_1", 10))
	require.NoError(t, err)
	assert.Equal(t, entity.FundsPending, res.Status)

	q := provider.FundsStatusQuery{ReferenceID: res.ReferenceID}
	for range 2 {
		s, err := w.Status(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, entity.FundsPending, s)
	}
	s, err := w.Status(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, entity.FundsCompleted, s)
}

func TestWallet_IdempotentMove(t *testing.T) {
	ctx := context.Background()
	w := NewWallet()

	first, err := w.Move(ctx, moveRequest("pay_1", 10))
	require.NoError(t, err)
	second, err := w.Move(ctx, moveRequest("pay_1", 10))
	require.NoError(t, err)

	assert.Equal(t, first.ReferenceID, second.ReferenceID)
	assert.Equal(t, 1, w.Moves())
}

func TestWallet_Limit(t *testing.T) {
	ctx := context.Background()
	w := NewWallet(WithSettleAfter(0), WithLimit(decimal.NewFromInt(50)))

	res, err := w.Move(ctx, moveRequest("pay_big", 100))
	require.NoError(t, err)

	s, err := w.Status(ctx, provider.FundsStatusQuery{ReferenceID: res.ReferenceID})
	require.NoError(t, err)
	assert.Equal(t, entity.FundsFailed, s)
}

func TestWallet_Rejects(t *testing.T) {
	ctx := context.Background()
	w := NewWallet()

	req := moveRequest("pay_1", 10)
	req.WalletHandle = ""
	_, err := w.Move(ctx, req)
	require.ErrorIs(t, err, provider.ErrRejected)

	_, err = w.Move(ctx, moveRequest("pay_2", 0))
	require.ErrorIs(t, err, provider.ErrRejected)

	_, err = w.Status(ctx, provider.FundsStatusQuery{ReferenceID: "missing"})
	require.ErrorIs(t, err, provider.ErrRejected)
}

func createRequest(seq, account string) provider.CreatePayoutRequest {
	return provider.CreatePayoutRequest{
		ChannelID:   "sbx-NG-bank",
		SequenceID:  seq,
		Amount:      decimal.NewFromInt(10),
		Currency:    "NGN",
		Country:     "NG",
		Destination: provider.Destination{AccountNumber: account, NetworkID: "sbx-NG-044"},
	}
}

func TestDisburser_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		account string
		want    entity.PayoutStatus
	}{
		{"success account", SuccessAccount, entity.PayoutCompleted},
		{"failure account", FailureAccount, entity.PayoutFailed},
		{"other account", "2222222222", entity.PayoutCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			d := NewDisburser()

			res, err := d.Create(ctx, createRequest("seq_"+tt.account, tt.account))
			require.NoError(t, err)

			s, err := d.Status(ctx, res.ID)
			require.NoError(t, err)
			assert.Equal(t, entity.PayoutProcessing, s)

			s, err = d.Status(ctx, res.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestDisburser_IdempotentCreate(t *testing.T) {
	ctx := context.Background()
	d := NewDisburser()

	first, err := d.Create(ctx, createRequest("seq_1", SuccessAccount))
	require.NoError(t, err)
	second, err := d.Create(ctx, createRequest("seq_1", SuccessAccount))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, d.Creates())

	_, err = d.Create(ctx, createRequest("seq_2", ""))
	require.ErrorIs(t, err, provider.ErrRejected)
}

func TestDisburser_Catalog(t *testing.T) {
	ctx := context.Background()
	d := NewDisburser(WithAccountName(SuccessAccount, "CHIDI OKAFOR"))

	channels, err := d.Channels(ctx, "ng")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "NG", channels[0].Country)

	networks, err := d.Networks(ctx, "NG")
	require.NoError(t, err)
	assert.NotEmpty(t, networks)

	details, err := d.ResolveBankAccount(ctx, provider.AccountLookup{Country: "NG", AccountNumber: SuccessAccount})
	require.NoError(t, err)
	assert.Equal(t, "CHIDI OKAFOR", details.AccountName)

	unknown, err := d.ResolveBankAccount(ctx, provider.AccountLookup{Country: "NG", AccountNumber: "999"})
	require.NoError(t, err)
	assert.Empty(t, unknown.AccountName)
}
