package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
	grpcdelivery "github.com/Xausdorf/payout-hub/internal/delivery/grpc"
	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/cache"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/events"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/grpcclient"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/memory"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/sandbox"
	"github.com/Xausdorf/payout-hub/internal/poll"
	"github.com/Xausdorf/payout-hub/internal/usecase/payout"
	"github.com/Xausdorf/payout-hub/internal/usecase/routing"
)

const bufSize = 1 << 20

var secret = []byte("grpc-secret")

type env struct {
	lis *bufconn.Listener
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.NewStore()
	for _, uid := range []string{"user-1", "user-2"} {
		store.PutProfile(entity.WalletProfile{UserID: uid, WalletHandle: uid + ".wallet", FirstName: "Ada", Country: "US"})
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

	srv, _ := grpcdelivery.NewServer(grpcdelivery.NewHandler(uc, runner, zap.NewNop()), auth.NewVerifier(secret), zap.NewNop())
	lis := bufconn.Listen(bufSize)
	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(func() {
		srv.Stop()
		_ = runner.Shutdown(context.Background())
	})
	return &env{lis: lis}
}

func (e *env) dialer() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return e.lis.DialContext(ctx)
	})
}

func (e *env) client(t *testing.T, uid string) *grpcclient.Client {
	t.Helper()

	var tok string
	if uid != "" {
		var err error
		tok, err = auth.Sign(secret, uid, jwt.RegisteredClaims{})
		require.NoError(t, err)
	}
	c, err := grpcclient.NewClient("passthrough:///bufnet", tok, e.dialer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func submitBody(account string, wait bool) map[string]any {
	return map[string]any{
		"amount":       "50",
		"destCurrency": "NGN",
		"method":       "bank_transfer",
		"wait":         wait,
		"beneficiary": map[string]any{
			"name":          "Chidi Okafor",
			"country":       "NG",
			"accountNumber": account,
			"bankName":      "access",
		},
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	conn, err := grpc.NewClient("passthrough:///bufnet", e.dialer(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: grpcdelivery.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestUnauthenticated(t *testing.T) {
	e := newEnv(t)
	_, err := e.client(t, "").GetPayout(context.Background(), "8d8ac610-566d-4ef0-9c22-186b2a5ed793")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestSubmitPayout_Wait(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "user-1")

	got, err := c.SubmitPayout(context.Background(), submitBody(sandbox.SuccessAccount, true))
	require.NoError(t, err)

	assert.Equal(t, "completed", got["overallStatus"])
	assert.Equal(t, "completed", got["providerAStatus"])
	assert.Equal(t, "completed", got["providerBStatus"])
	assert.Equal(t, false, got["idempotentReplay"])
}

func TestSubmitPayout_WaitFailure(t *testing.T) {
	e := newEnv(t)
	_, err := e.client(t, "user-1").SubmitPayout(context.Background(), submitBody(sandbox.FailureAccount, true))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestSubmitPayout_Async(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "user-1")

	body := submitBody(sandbox.SuccessAccount, false)
	body["idempotencyKey"] = "grpc-key"
	got, err := c.SubmitPayout(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "created", got["overallStatus"])

	id, _ := got["id"].(string)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		p, err := c.GetPayout(context.Background(), id)
		return err == nil && p["overallStatus"] == "completed"
	}, 5*time.Second, 10*time.Millisecond)

	replay, err := c.SubmitPayout(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, id, replay["id"])
	assert.Equal(t, true, replay["idempotentReplay"])

	_, err = e.client(t, "user-2").GetPayout(context.Background(), id)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestErrors(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, "user-1")

	_, err := c.GetPayout(context.Background(), "nope")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.GetPayout(context.Background(), "8d8ac610-566d-4ef0-9c22-186b2a5ed793")
	assert.Equal(t, codes.NotFound, status.Code(err))

	bad := submitBody(sandbox.SuccessAccount, false)
	bad["amount"] = "-1"
	_, err = c.SubmitPayout(context.Background(), bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = e.client(t, "user-9").SubmitPayout(context.Background(), submitBody(sandbox.SuccessAccount, false))
	assert.Equal(t, codes.NotFound, status.Code(err))
}
