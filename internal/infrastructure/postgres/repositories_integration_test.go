//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/repository"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/cache"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/events"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/postgres"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/sandbox"
	"github.com/Xausdorf/payout-hub/internal/poll"
	"github.com/Xausdorf/payout-hub/internal/usecase/payout"
	"github.com/Xausdorf/payout-hub/internal/usecase/routing"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("payouts"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.ApplySchema(ctx, pool))
	require.NoError(t, postgres.UpsertProfile(ctx, pool, entity.WalletProfile{
		UserID:       "user-1",
		WalletHandle: "ada.wallet",
		SourceID:     "src-1",
		FirstName:    "Ada",
		LastName:     "Obi",
		Country:      "US",
	}))
	return pool
}

func newPayout(key string) *entity.Payout {
	return entity.NewPayout(entity.PayoutParams{
		UserID:         "user-1",
		IdempotencyKey: key,
		CorrelationID:  "cor_" + key,
		SourceAmount:   decimal.RequireFromString("125.50"),
		SourceCurrency: "USD",
		DestCurrency:   "NGN",
		Beneficiary: entity.Beneficiary{
			Name:          "Chidi Okafor",
			Country:       "NG",
			Method:        entity.MethodBankTransfer,
			AccountNumber: sandbox.SuccessAccount,
			BankCode:      "044",
		},
	})
}

func TestIntegration_PayoutRepository(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	uow := postgres.NewUnitOfWork(pool)

	p := newPayout("repo-1")
	require.NoError(t, uow.Payouts().Create(ctx, p))
	require.ErrorIs(t, uow.Payouts().Create(ctx, newPayout("repo-1")), repository.ErrDuplicate)

	stored, err := uow.Payouts().FindByIdempotencyKey(ctx, "repo-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, p.SourceAmount().Equal(stored.SourceAmount()))
	assert.Equal(t, p.Beneficiary(), stored.Beneficiary())
	assert.Equal(t, entity.StatusCreated, stored.Status())
	assert.Equal(t, int64(1), stored.Version())

	require.NoError(t, p.MarkFundsMoving("tx-1"))
	require.NoError(t, uow.Payouts().Update(ctx, p))
	assert.Equal(t, int64(2), p.Version())

	require.NoError(t, stored.Fail("stale"))
	require.ErrorIs(t, uow.Payouts().Update(ctx, stored), repository.ErrConflict)

	unfinished, err := uow.Payouts().ListUnfinished(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, unfinished, 1)
	assert.Equal(t, "tx-1", unfinished[0].FundsReference())

	missing, err := uow.Payouts().FindByIdempotencyKey(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile, err := uow.Profiles().FindByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Ada Obi", profile.FullName())
}

func TestIntegration_ConcurrentSubmitSameKey(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	disburser := sandbox.NewDisburser()
	uc := payout.NewUseCase(
		postgres.NewUnitOfWork(pool),
		sandbox.NewWallet(),
		disburser,
		routing.NewResolver(disburser, cache.NewLRU(16, 0), zap.NewNop(), nil),
		payout.NewLocalLocker(),
		events.Nop{},
		payout.Config{
			CompanyWallet: "company.wallet",
			FundsPoll:     poll.Options{Interval: time.Millisecond, Backoff: 1, MaxWait: time.Second},
			PayoutPoll:    poll.Options{Interval: time.Millisecond, Backoff: 1, MaxWait: time.Second},
		},
		zap.NewNop(),
	)

	const workers = 10
	ids := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := range workers {
		go func(idx int) {
			defer wg.Done()
			p, _, err := uc.Submit(ctx, payout.Request{
				UserID:         "user-1",
				IdempotencyKey: "storm",
				Amount:         decimal.NewFromInt(100),
				DestCurrency:   "NGN",
				Method:         entity.MethodBankTransfer,
				Beneficiary: entity.Beneficiary{
					Name:          "Chidi Okafor",
					Country:       "NG",
					AccountNumber: sandbox.SuccessAccount,
				},
			})
			if assert.NoError(t, err) {
				ids[idx] = p.ID().String()
			}
		}(i)
	}
	wg.Wait()

	for i := range workers {
		assert.Equal(t, ids[0], ids[i], "submit %d returned a different payout", i)
	}

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM payouts WHERE idempotency_key = 'storm'`).Scan(&count))
	assert.Equal(t, 1, count)

	resp, err := uc.Execute(ctx, payout.Request{
		UserID:         "user-1",
		IdempotencyKey: "storm",
		Amount:         decimal.NewFromInt(100),
		DestCurrency:   "NGN",
		Method:         entity.MethodBankTransfer,
		Beneficiary:    entity.Beneficiary{Name: "Chidi Okafor", Country: "NG", AccountNumber: sandbox.SuccessAccount},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, resp.Status)
	assert.True(t, resp.IdempotentReplay)
}
