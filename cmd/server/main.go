package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
	grpcdelivery "github.com/Xausdorf/payout-hub/internal/delivery/grpc"
	httpdelivery "github.com/Xausdorf/payout-hub/internal/delivery/http"
	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/event"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
	"github.com/Xausdorf/payout-hub/internal/domain/repository"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/cache"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/config"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/events"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/logger"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/memory"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/postgres"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/disburse"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/sandbox"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/wallet"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/qrgenerator"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/redislock"
	"github.com/Xausdorf/payout-hub/internal/poll"
	"github.com/Xausdorf/payout-hub/internal/usecase/payout"
	"github.com/Xausdorf/payout-hub/internal/usecase/receipt"
	"github.com/Xausdorf/payout-hub/internal/usecase/routing"
)

const (
	dbMaxConns        = 10
	dbMinConns        = 2
	dbMaxConnLifetime = 30 * time.Minute
	dbMaxConnIdleTime = 5 * time.Minute

	qrCodeSize            = 256
	routingCacheSize      = 256
	readHeaderTimeout     = 5 * time.Second
	gracefulShutdownDelay = 15 * time.Second

	demoUserID = "demo-user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	uow, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	funds, payouts, catalog := providers(cfg, log)
	resolver := routing.NewResolver(catalog, routingCache(cfg, rdb, log), log, cfg.VerifyCountries)

	var locker payout.Locker = payout.NewLocalLocker()
	if rdb != nil {
		locker = redislock.New(rdb, cfg.LockExpiry, log)
	}

	var publisher event.Publisher = events.NewLog(log)
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer k.Close()
		publisher = k
	}

	payoutUC := payout.NewUseCase(uow, funds, payouts, resolver, locker, publisher, payout.Config{
		CompanyWallet: cfg.CompanyWallet,
		FundsPoll:     poll.Options{Interval: cfg.FundsPoll.Interval, MaxWait: cfg.FundsPoll.MaxWait},
		PayoutPoll:    poll.Options{Interval: cfg.PayoutPoll.Interval, MaxWait: cfg.PayoutPoll.MaxWait},
	}, log)

	runner := payout.NewRunner(payoutUC, uow, payout.RunnerConfig{
		Concurrency:   cfg.Concurrency,
		SweepInterval: cfg.SweepInterval,
		StaleAfter:    cfg.StaleAfter,
	}, log)
	if n, err := runner.Recover(ctx); err != nil {
		log.Error("recover unfinished payouts failed", zap.Error(err))
	} else if n > 0 {
		log.Info("resuming unfinished payouts", zap.Int("count", n))
	}
	go runner.Run(ctx)

	verifier := auth.NewVerifier([]byte(cfg.JWTSecret))
	receiptUC := receipt.NewUseCase(payoutUC, qrgenerator.NewGenerator(qrCodeSize))

	router := httpdelivery.NewRouter(
		httpdelivery.NewHandler(payoutUC, runner, receiptUC, log),
		httpdelivery.RouterConfig{Verifier: verifier, CORSOrigins: cfg.CORSOrigins, WaitTimeout: cfg.WaitTimeout},
		log,
	)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	grpcSrv, health := grpcdelivery.NewServer(grpcdelivery.NewHandler(payoutUC, runner, log), verifier, log)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve failed", zap.Error(err))
			cancel()
		}
	}()
	go func() {
		log.Info("gRPC server starting", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc serve failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	health.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownDelay)
	defer shutdownCancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn("runner did not stop in time", zap.Error(err))
	}
	return nil
}

// openStore uses Postgres when DATABASE_URL is set and the in-memory store
// with a demo wallet profile otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.UnitOfWork, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, payouts are kept in memory")
		store := memory.NewStore()
		store.PutProfile(demoProfile())
		return memory.NewUnitOfWork(store), func() {}, nil
	}

	pool, err := initDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.ApplySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if cfg.ProviderMode == config.ProviderModeSandbox {
		if err := postgres.UpsertProfile(ctx, pool, demoProfile()); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return postgres.NewUnitOfWork(pool), pool.Close, nil
}

func initDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = dbMaxConns
	cfg.MinConns = dbMinConns
	cfg.MaxConnLifetime = dbMaxConnLifetime
	cfg.MaxConnIdleTime = dbMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func providers(cfg *config.Config, log *zap.Logger) (provider.FundsMover, provider.PayoutCreator, provider.RoutingCatalog) {
	if cfg.ProviderMode == config.ProviderModeSandbox {
		log.Info("using sandbox providers")
		d := sandbox.NewDisburser()
		return sandbox.NewWallet(), d, d
	}

	w := wallet.New(wallet.Config{
		BaseURL:     cfg.Wallet.BaseURL,
		AppHandle:   cfg.Wallet.AppHandle,
		AppSecret:   cfg.Wallet.AppSecret,
		OpenTimeout: cfg.BreakerOpen,
	}, log)
	d := disburse.New(disburse.Config{
		BaseURL:     cfg.Disburse.BaseURL,
		APIKey:      cfg.Disburse.APIKey,
		APISecret:   cfg.Disburse.APISecret,
		OpenTimeout: cfg.BreakerOpen,
	}, log)
	return w, d, d
}

func routingCache(cfg *config.Config, rdb *redis.Client, log *zap.Logger) routing.Cache {
	local := cache.NewLRU(routingCacheSize, cfg.RoutingCacheTTL)
	if rdb == nil {
		return local
	}
	return cache.NewTiered(local, cache.NewRedis(rdb, "routing", cfg.RoutingCacheTTL, log))
}

func demoProfile() entity.WalletProfile {
	return entity.WalletProfile{
		UserID:       demoUserID,
		WalletHandle: "demo.wallet",
		SourceID:     "demo-source",
		FirstName:    "Demo",
		LastName:     "User",
		Email:        "demo@example.com",
		Phone:        "+15550100",
		Address:      "1 Main St",
		City:         "Austin",
		State:        "TX",
		Zip:          "73301",
		Country:      "US",
		DateOfBirth:  "1990-01-01",
		IDType:       "ssn",
		IDNumber:     "000-00-0000",
	}
}
