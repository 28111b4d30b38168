// Package transport is the JSON-over-HTTP client shared by provider adapters.
// Every call goes through a circuit breaker; 4xx responses are rejections and
// do not count against the breaker.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/provider"
)

const (
	DefaultTimeout  = 15 * time.Second
	maxErrorBody    = 512
	tripConsecutive = 5
)

// Signer adds authentication headers to a request. body is the exact
// payload sent, nil for requests without one.
type Signer func(req *http.Request, body []byte) error

type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	sign    Signer
	log     *zap.Logger
}

func New(cfg Config, sign Signer, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	log = log.With(zap.String("provider", cfg.Name))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripConsecutive
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
		IsSuccessful: healthy,
	})

	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		sign:    sign,
		log:     log,
	}
}

// BasePath is the path component of the base URL, e.g. "/business".
func (c *Client) BasePath() string {
	u, err := url.Parse(c.base)
	if err != nil {
		return ""
	}
	return u.Path
}

// Do sends in as JSON (when non-nil) and decodes the response into out (when
// non-nil). extra signers run after the client's own. Provider errors wrap
// provider.ErrRejected or provider.ErrUnavailable.
func (c *Client) Do(ctx context.Context, method, path string, in, out any, extra ...Signer) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.do(ctx, method, path, in, out, extra)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", provider.ErrUnavailable, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, extra []Signer) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, sign := range append([]Signer{c.sign}, extra...) {
		if sign == nil {
			continue
		}
		if err := sign(req, body); err != nil {
			return fmt.Errorf("sign %s %s: %w", method, path, err)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %w", provider.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("provider call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s %s returned %d: %s", provider.ErrUnavailable, method, path, resp.StatusCode, snippet(resp.Body))
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s throttled", provider.ErrUnavailable, method, path)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: %s %s returned %d: %s", provider.ErrRejected, method, path, resp.StatusCode, snippet(resp.Body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", provider.ErrUnavailable, method, path, err)
	}
	return nil
}

// healthy reports whether err leaves the provider's health intact:
// rejections and calls abandoned by the caller's context do not count
// against the breaker. Client timeouts wrap provider.ErrUnavailable and do.
func healthy(err error) bool {
	switch {
	case err == nil, errors.Is(err, provider.ErrRejected):
		return true
	case errors.Is(err, provider.ErrUnavailable):
		return false
	default:
		return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	}
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
