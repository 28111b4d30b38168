package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderModeSandbox = "sandbox"
	ProviderModeLive    = "live"

	// SandboxJWTSecret signs tokens in sandbox mode when JWT_SECRET is unset.
	SandboxJWTSecret = "sandbox-secret"
)

type Config struct {
	HTTPAddr    string
	WaitTimeout time.Duration
	GRPCAddr    string
	DatabaseURL string
	RedisAddr   string
	LogFormat   string
	JWTSecret   string
	CORSOrigins []string

	KafkaBrokers []string
	KafkaTopic   string

	ProviderMode  string
	CompanyWallet string
	Wallet        WalletConfig
	Disburse      DisburseConfig

	VerifyCountries []string
	RoutingCacheTTL time.Duration
	BreakerOpen     time.Duration

	FundsPoll  PollConfig
	PayoutPoll PollConfig

	Concurrency   int64
	SweepInterval time.Duration
	StaleAfter    time.Duration
	LockExpiry    time.Duration
}

type WalletConfig struct {
	BaseURL   string
	AppHandle string
	AppSecret string
}

type DisburseConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

type PollConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, fills variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		WaitTimeout: p.duration("HTTP_WAIT_TIMEOUT", 30*time.Minute),
		GRPCAddr:    getEnv("GRPC_ADDR", ":50051"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getList("CORS_ORIGINS", "*"),

		KafkaBrokers: getList("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "payout.events"),

		ProviderMode:  strings.ToLower(getEnv("PROVIDER_MODE", ProviderModeSandbox)),
		CompanyWallet: getEnv("COMPANY_WALLET", "company.wallet"),
		Wallet: WalletConfig{
			BaseURL:   getEnv("WALLET_BASE_URL", "https://sandbox.silamoney.com/0.2"),
			AppHandle: getEnv("WALLET_APP_HANDLE", ""),
			AppSecret: getEnv("WALLET_APP_SECRET", ""),
		},
		Disburse: DisburseConfig{
			BaseURL:   getEnv("DISBURSE_BASE_URL", "https://sandbox.api.yellowcard.io/business"),
			APIKey:    getEnv("DISBURSE_API_KEY", ""),
			APISecret: getEnv("DISBURSE_API_SECRET", ""),
		},

		VerifyCountries: getList("VERIFY_COUNTRIES", "NG"),
		RoutingCacheTTL: p.duration("ROUTING_CACHE_TTL", 10*time.Minute),
		BreakerOpen:     p.duration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		FundsPoll: PollConfig{
			Interval: p.duration("FUNDS_POLL_INTERVAL", 2*time.Second),
			MaxWait:  p.duration("FUNDS_POLL_MAX_WAIT", 15*time.Minute),
		},
		PayoutPoll: PollConfig{
			Interval: p.duration("PAYOUT_POLL_INTERVAL", 2500*time.Millisecond),
			MaxWait:  p.duration("PAYOUT_POLL_MAX_WAIT", 10*time.Minute),
		},

		Concurrency:   p.int64("RUNNER_CONCURRENCY", 16),
		SweepInterval: p.duration("SWEEP_INTERVAL", time.Minute),
		StaleAfter:    p.duration("STALE_AFTER", 5*time.Minute),
		LockExpiry:    p.duration("LOCK_EXPIRY", 30*time.Second),
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.ProviderMode {
	case ProviderModeSandbox:
		if c.JWTSecret == "" {
			c.JWTSecret = SandboxJWTSecret
		}
	case ProviderModeLive:
		if c.JWTSecret == "" {
			return errors.New("config: JWT_SECRET is required in live mode")
		}
		if c.Wallet.AppHandle == "" || c.Wallet.AppSecret == "" {
			return errors.New("config: WALLET_APP_HANDLE and WALLET_APP_SECRET are required in live mode")
		}
		if c.Disburse.APIKey == "" || c.Disburse.APISecret == "" {
			return errors.New("config: DISBURSE_API_KEY and DISBURSE_API_SECRET are required in live mode")
		}
	default:
		return fmt.Errorf("config: PROVIDER_MODE must be %s or %s, got %q", ProviderModeSandbox, ProviderModeLive, c.ProviderMode)
	}
	if c.Concurrency <= 0 {
		return errors.New("config: RUNNER_CONCURRENCY must be positive")
	}
	return nil
}

type parser struct {
	err error
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.err = errors.Join(p.err, fmt.Errorf("config: %s: %w", key, err))
		return fallback
	}
	return d
}

func (p *parser) int64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.err = errors.Join(p.err, fmt.Errorf("config: %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
