// Package wallet is the HTTP client of the wallet provider that moves funds
// between wallets.
package wallet

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/transport"
)

const (
	acceptedStatus = "success"
	defaultAccount = "default"
)

type Config struct {
	BaseURL     string
	AppHandle   string
	AppSecret   string
	Timeout     time.Duration
	OpenTimeout time.Duration
}

type Client struct {
	http      *transport.Client
	appHandle string
	now       func() time.Time
}

func New(cfg Config, log *zap.Logger) *Client {
	return &Client{
		http: transport.New(transport.Config{
			Name:        "wallet",
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			OpenTimeout: cfg.OpenTimeout,
		}, hmacSigner("authsignature", cfg.AppSecret), log),
		appHandle: cfg.AppHandle,
		now:       time.Now,
	}
}

type header struct {
	Created    int64  `json:"created"`
	AppHandle  string `json:"app_handle"`
	UserHandle string `json:"user_handle"`
	Reference  string `json:"reference"`
}

type transferRequest struct {
	Header            header `json:"header"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency,omitempty"`
	DestinationHandle string `json:"destination_handle"`
	AccountName       string `json:"account_name"`
	SourceID          string `json:"source_id,omitempty"`
	Descriptor        string `json:"descriptor,omitempty"`
}

type transferResponse struct {
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// Move asks the wallet provider to transfer the amount, expressed in minor
// units, to the destination wallet. A response without SUCCESS is a failed
// move.
func (c *Client) Move(ctx context.Context, req provider.MoveRequest) (*provider.MoveResult, error) {
	body := transferRequest{
		Header:            c.header(req.WalletHandle, req.IdempotencyToken),
		Amount:            req.Amount.Shift(2).Round(0).IntPart(),
		Currency:          req.Currency,
		DestinationHandle: req.DestinationHandle,
		AccountName:       defaultAccount,
		SourceID:          req.SourceID,
		Descriptor:        req.Descriptor,
	}

	var resp transferResponse
	if err := c.http.Do(ctx, http.MethodPost, "/transfer", body, &resp, hmacSigner("usersignature", req.WalletCredential)); err != nil {
		return nil, err
	}

	res := &provider.MoveResult{ReferenceID: resp.TransactionID, RawStatus: resp.Status}
	if strings.EqualFold(resp.Status, acceptedStatus) {
		res.Status = entity.FundsPending
	} else {
		res.Status = entity.FundsFailed
	}
	return res, nil
}

type searchFilters struct {
	TransactionID string `json:"transaction_id"`
	Page          int    `json:"page"`
	PerPage       int    `json:"per_page"`
}

type transactionsRequest struct {
	Header        header        `json:"header"`
	SearchFilters searchFilters `json:"search_filters"`
}

type transaction struct {
	TransactionID     string `json:"transaction_id"`
	Status            string `json:"status"`
	TransactionStatus string `json:"transaction_status"`
}

type transactionsResponse struct {
	Success           bool          `json:"success"`
	Transactions      []transaction `json:"transactions"`
	TransactionStatus string        `json:"transaction_status"`
}

// Status reads the transfer by id. The provider reports the state as either
// status or transaction_status; nothing at all means still pending.
func (c *Client) Status(ctx context.Context, q provider.FundsStatusQuery) (entity.FundsStatus, error) {
	body := transactionsRequest{
		Header:        c.header(q.WalletHandle, ""),
		SearchFilters: searchFilters{TransactionID: q.ReferenceID, Page: 1, PerPage: 1},
	}

	var resp transactionsResponse
	if err := c.http.Do(ctx, http.MethodPost, "/get_transactions", body, &resp, hmacSigner("usersignature", q.WalletCredential)); err != nil {
		return "", err
	}
	return provider.NormalizeFundsStatus(rawStatus(resp, q.ReferenceID)), nil
}

func rawStatus(resp transactionsResponse, id string) string {
	var tx *transaction
	for i := range resp.Transactions {
		if resp.Transactions[i].TransactionID == id {
			tx = &resp.Transactions[i]
			break
		}
	}
	if tx == nil && len(resp.Transactions) > 0 {
		tx = &resp.Transactions[0]
	}

	switch {
	case tx != nil && tx.Status != "":
		return tx.Status
	case tx != nil && tx.TransactionStatus != "":
		return tx.TransactionStatus
	default:
		return resp.TransactionStatus
	}
}

func (c *Client) header(userHandle, reference string) header {
	return header{
		Created:    c.now().Unix(),
		AppHandle:  c.appHandle,
		UserHandle: userHandle,
		Reference:  reference,
	}
}

func hmacSigner(headerName, secret string) transport.Signer {
	return func(req *http.Request, body []byte) error {
		if secret == "" {
			return nil
		}
		mac := hmac.New(sha256.New, []byte(secret))
		_, _ = mac.Write(body)
		req.Header.Set(headerName, hex.EncodeToString(mac.Sum(nil)))
		return nil
	}
}

var _ provider.FundsMover = (*Client)(nil)
