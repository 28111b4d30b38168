package entity_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
)

func newPayout() *entity.Payout {
	return entity.NewPayout(entity.PayoutParams{
		UserID:         "user-1",
		IdempotencyKey: "key-1",
		CorrelationID:  "cor_1",
		SourceAmount:   decimal.RequireFromString("25.50"),
		SourceCurrency: "USD",
		DestCurrency:   "NGN",
		Beneficiary: entity.Beneficiary{
			Name:          "Ada",
			Country:       "NG",
			Method:        entity.MethodBankTransfer,
			AccountNumber: "1111111111",
		},
	})
}

func TestNewPayout(t *testing.T) {
	p := newPayout()

	assert.Equal(t, entity.StatusCreated, p.Status())
	assert.Equal(t, entity.FundsNotStarted, p.FundsStatus())
	assert.Equal(t, entity.PayoutNotStarted, p.PayoutStatus())
	assert.Empty(t, p.FundsReference())
	assert.Empty(t, p.PayoutReference())
	assert.NotEqual(t, uuid.Nil, p.ID())
	assert.True(t, p.SourceAmount().Equal(decimal.RequireFromString("25.5")))
}

func TestPayout_HappyPath(t *testing.T) {
	p := newPayout()

	require.NoError(t, p.MarkFundsMoving("sila-1"))
	assert.Equal(t, entity.StatusProviderASettling, p.Status())
	assert.Equal(t, entity.FundsPending, p.FundsStatus())

	require.NoError(t, p.MarkFundsSettled())
	assert.Equal(t, entity.StatusPayoutProcessing, p.Status())
	assert.Equal(t, entity.FundsCompleted, p.FundsStatus())

	require.NoError(t, p.RecordPayoutCreated("yc-1"))
	assert.Equal(t, entity.StatusPayoutProcessing, p.Status())
	assert.Equal(t, entity.PayoutProcessing, p.PayoutStatus())

	require.NoError(t, p.Complete())
	assert.Equal(t, entity.StatusCompleted, p.Status())
	assert.Equal(t, entity.FundsCompleted, p.FundsStatus())
	assert.Equal(t, entity.PayoutCompleted, p.PayoutStatus())
}

func TestPayout_CannotSkipSteps(t *testing.T) {
	p := newPayout()

	require.ErrorIs(t, p.MarkFundsSettled(), entity.ErrInvalidTransition)
	require.ErrorIs(t, p.RecordPayoutCreated("yc-1"), entity.ErrInvalidTransition)
	require.ErrorIs(t, p.Complete(), entity.ErrInvalidTransition)
	require.ErrorIs(t, p.MarkFundsMoving(""), entity.ErrInvalidTransition)
	assert.Equal(t, entity.StatusCreated, p.Status())
}

func TestPayout_PayoutReferenceSetOnce(t *testing.T) {
	p := newPayout()
	require.NoError(t, p.MarkFundsMoving("sila-1"))
	require.NoError(t, p.MarkFundsSettled())
	require.NoError(t, p.RecordPayoutCreated("yc-1"))

	require.ErrorIs(t, p.RecordPayoutCreated("yc-2"), entity.ErrReferenceAlreadySet)
	assert.Equal(t, "yc-1", p.PayoutReference())
}

func TestPayout_FailMarksStepInProgress(t *testing.T) {
	tests := []struct {
		name        string
		prepare     func(p *entity.Payout)
		wantFunds   entity.FundsStatus
		wantPayout  entity.PayoutStatus
		wantFundRef string
	}{
		{
			name:       "before move",
			prepare:    func(*entity.Payout) {},
			wantFunds:  entity.FundsFailed,
			wantPayout: entity.PayoutNotStarted,
		},
		{
			name: "while settling",
			prepare: func(p *entity.Payout) {
				_ = p.MarkFundsMoving("sila-1")
			},
			wantFunds:   entity.FundsFailed,
			wantPayout:  entity.PayoutNotStarted,
			wantFundRef: "sila-1",
		},
		{
			name: "while paying out",
			prepare: func(p *entity.Payout) {
				_ = p.MarkFundsMoving("sila-1")
				_ = p.MarkFundsSettled()
			},
			wantFunds:   entity.FundsCompleted,
			wantPayout:  entity.PayoutFailed,
			wantFundRef: "sila-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPayout()
			tt.prepare(p)

			require.NoError(t, p.Fail("boom"))
			assert.Equal(t, entity.StatusFailed, p.Status())
			assert.Equal(t, tt.wantFunds, p.FundsStatus())
			assert.Equal(t, tt.wantPayout, p.PayoutStatus())
			assert.Equal(t, tt.wantFundRef, p.FundsReference())
			assert.Equal(t, "boom", p.FailureReason())
		})
	}
}

func TestPayout_TerminalIsFrozen(t *testing.T) {
	p := newPayout()
	require.NoError(t, p.Fail("first"))
	before := p.State()

	require.ErrorIs(t, p.Fail("second"), entity.ErrTerminal)
	require.ErrorIs(t, p.MarkFundsMoving("sila-1"), entity.ErrTerminal)
	require.ErrorIs(t, p.MarkFundsSettled(), entity.ErrTerminal)
	require.ErrorIs(t, p.Complete(), entity.ErrTerminal)

	assert.Equal(t, before, p.State())
}

func TestPayout_StateRoundTrip(t *testing.T) {
	p := newPayout()
	require.NoError(t, p.MarkFundsMoving("sila-1"))
	p.SetVersion(3)

	restored := entity.ReconstructPayout(p.State())

	assert.Equal(t, p.State(), restored.State())
	assert.Equal(t, int64(3), restored.Version())
}

func TestOverallStatus_Rank(t *testing.T) {
	order := []entity.OverallStatus{
		entity.StatusCreated,
		entity.StatusProviderASettling,
		entity.StatusPayoutProcessing,
		entity.StatusCompleted,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Rank(), order[i-1].Rank())
	}
	assert.Equal(t, entity.StatusCompleted.Rank(), entity.StatusFailed.Rank())
	assert.True(t, entity.StatusFailed.IsTerminal())
	assert.False(t, entity.StatusPayoutProcessing.IsTerminal())
}

func TestWalletProfile(t *testing.T) {
	p := entity.WalletProfile{
		FirstName: "Ada",
		LastName:  "Obi",
		Address:   "1 Main St",
		City:      "Austin",
		State:     "TX",
		Zip:       "73301",
	}

	assert.Equal(t, "Ada Obi", p.FullName())
	assert.Equal(t, "1 Main St, Austin, TX, 73301", p.FullAddress())
}
