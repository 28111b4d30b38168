package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
)

func TestNormalizeFundsStatus(t *testing.T) {
	cases := map[string]entity.FundsStatus{
		"success":    entity.FundsCompleted,
		"Completed":  entity.FundsCompleted,
		"failed":     entity.FundsFailed,
		"reversed":   entity.FundsFailed,
		"canceled":   entity.FundsFailed,
		"CANCELLED ": entity.FundsFailed,
		"pending":    entity.FundsPending,
		"queued":     entity.FundsPending,
		"":           entity.FundsPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, provider.NormalizeFundsStatus(raw), raw)
	}
}

func TestNormalizePayoutStatus(t *testing.T) {
	cases := map[string]entity.PayoutStatus{
		"completed":  entity.PayoutCompleted,
		"failed":     entity.PayoutFailed,
		"rejected":   entity.PayoutFailed,
		"cancelled":  entity.PayoutFailed,
		"expired":    entity.PayoutFailed,
		"processing": entity.PayoutProcessing,
		"created":    entity.PayoutProcessing,
		"":           entity.PayoutProcessing,
	}
	for raw, want := range cases {
		assert.Equal(t, want, provider.NormalizePayoutStatus(raw), raw)
	}
}

func TestChannelTypeFor(t *testing.T) {
	assert.Equal(t, provider.ChannelTypeBank, provider.ChannelTypeFor(entity.MethodBankTransfer))
	assert.Equal(t, provider.ChannelTypeMomo, provider.ChannelTypeFor(entity.MethodMobileMoney))
}
