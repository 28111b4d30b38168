// Command payoutctl talks to the payout service over gRPC.
//
//	payoutctl token -uid demo-user
//	payoutctl submit -file payout.json -key my-key -wait
//	payoutctl get -id 8d8ac610-566d-4ef0-9c22-186b2a5ed793
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Xausdorf/payout-hub/internal/delivery/auth"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/config"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/grpcclient"
)

const tokenTTL = time.Hour

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "payoutctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: payoutctl token|submit|get [flags]")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	addr := fs.String("addr", dialAddr(cfg.GRPCAddr), "payout service gRPC address")
	uid := fs.String("uid", "demo-user", "user the token is issued for")
	timeout := fs.Duration("timeout", 30*time.Second, "call timeout")

	switch args[0] {
	case "token":
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		tok, err := issue(cfg, *uid)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil

	case "submit":
		file := fs.String("file", "", "JSON payout request")
		key := fs.String("key", "", "idempotency key")
		wait := fs.Bool("wait", false, "wait for a terminal status")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		raw, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		var req map[string]any
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("%s: %w", *file, err)
		}
		if *key != "" {
			req["idempotencyKey"] = *key
		}
		req["wait"] = *wait

		return call(cfg, *addr, *uid, *timeout, func(ctx context.Context, c *grpcclient.Client) (map[string]any, error) {
			return c.SubmitPayout(ctx, req)
		})

	case "get":
		id := fs.String("id", "", "payout id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return call(cfg, *addr, *uid, *timeout, func(ctx context.Context, c *grpcclient.Client) (map[string]any, error) {
			return c.GetPayout(ctx, *id)
		})

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func issue(cfg *config.Config, uid string) (string, error) {
	return auth.Sign([]byte(cfg.JWTSecret), uid, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	})
}

func call(cfg *config.Config, addr, uid string, timeout time.Duration, fn func(context.Context, *grpcclient.Client) (map[string]any, error)) error {
	tok, err := issue(cfg, uid)
	if err != nil {
		return err
	}
	c, err := grpcclient.NewClient(addr, tok)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := fn(ctx, c)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// dialAddr turns a listen address such as ":50051" into one a client can dial.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
