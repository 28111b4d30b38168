// Package disburse is the HTTP client of the disbursement provider that pays
// out to banks and mobile-money wallets.
package disburse

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
	"github.com/Xausdorf/payout-hub/internal/infrastructure/provider/transport"
)

const (
	authScheme      = "YcHmacV1"
	timestampHeader = "X-YC-Timestamp"
)

type Config struct {
	BaseURL     string
	APIKey      string
	APISecret   string
	Timeout     time.Duration
	OpenTimeout time.Duration
}

type Client struct {
	http *transport.Client
}

func New(cfg Config, log *zap.Logger) *Client {
	return &Client{
		http: transport.New(transport.Config{
			Name:        "disburse",
			BaseURL:     cfg.BaseURL,
			Timeout:     cfg.Timeout,
			OpenTimeout: cfg.OpenTimeout,
		}, Signer(cfg.APIKey, cfg.APISecret, time.Now), log),
	}
}

// Signer signs timestamp + path + METHOD, plus base64(sha256(body)) for
// requests with a body, using HMAC-SHA256 over the API secret. The path is
// the full request path without the query string.
func Signer(key, secret string, now func() time.Time) transport.Signer {
	return func(req *http.Request, body []byte) error {
		ts := now().UTC().Format("2006-01-02T15:04:05.000Z")
		msg := ts + req.URL.Path + req.Method
		if req.Method == http.MethodPost || req.Method == http.MethodPut {
			sum := sha256.Sum256(body)
			msg += base64.StdEncoding.EncodeToString(sum[:])
		}

		mac := hmac.New(sha256.New, []byte(secret))
		_, _ = mac.Write([]byte(msg))

		req.Header.Set(timestampHeader, ts)
		req.Header.Set("Authorization", authScheme+" "+key+":"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
		return nil
	}
}

type channelDTO struct {
	ID          string `json:"id"`
	Country     string `json:"country"`
	ChannelType string `json:"channelType"`
	Status      string `json:"status"`
}

type networkDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Code              string   `json:"code"`
	Country           string   `json:"country"`
	Status            string   `json:"status"`
	ChannelIDs        []string `json:"channelIds"`
	AccountNumberType string   `json:"accountNumberType"`
}

func (c *Client) Channels(ctx context.Context, country string) ([]provider.Channel, error) {
	var resp struct {
		Channels []channelDTO `json:"channels"`
	}
	if err := c.http.Do(ctx, http.MethodGet, "/channels?"+url.Values{"country": {country}}.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]provider.Channel, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		out = append(out, provider.Channel(ch))
	}
	return out, nil
}

func (c *Client) Networks(ctx context.Context, country string) ([]provider.Network, error) {
	var resp struct {
		Networks []networkDTO `json:"networks"`
	}
	if err := c.http.Do(ctx, http.MethodGet, "/networks?"+url.Values{"country": {country}}.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]provider.Network, 0, len(resp.Networks))
	for _, n := range resp.Networks {
		out = append(out, provider.Network(n))
	}
	return out, nil
}

type bankLookupRequest struct {
	AccountNumber string `json:"accountNumber"`
	NetworkID     string `json:"networkId"`
}

type bankLookupResponse struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	AccountBank   string `json:"accountBank"`
}

func (c *Client) ResolveBankAccount(ctx context.Context, q provider.AccountLookup) (*provider.AccountDetails, error) {
	var resp bankLookupResponse
	err := c.http.Do(ctx, http.MethodPost, "/details/bank", bankLookupRequest{
		AccountNumber: q.AccountNumber,
		NetworkID:     q.NetworkID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &provider.AccountDetails{
		AccountName:   resp.AccountName,
		AccountNumber: resp.AccountNumber,
		BankName:      resp.AccountBank,
	}, nil
}

type senderDTO struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	DOB      string `json:"dob,omitempty"`
	Email    string `json:"email,omitempty"`
	IDType   string `json:"idType,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`
}

type destinationDTO struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
	NetworkID     string `json:"networkId"`
}

type paymentRequest struct {
	ChannelID   string         `json:"channelId"`
	SequenceID  string         `json:"sequenceId"`
	Amount      json.Number    `json:"amount,omitempty"`
	LocalAmount json.Number    `json:"localAmount,omitempty"`
	Currency    string         `json:"currency"`
	Country     string         `json:"country"`
	Reason      string         `json:"reason"`
	ForceAccept bool           `json:"forceAccept"`
	Sender      senderDTO      `json:"sender"`
	Destination destinationDTO `json:"destination"`
}

type paymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Create submits the payment. SequenceID is the provider-side idempotency
// key, so a retried Create for the same payout returns the same payment.
func (c *Client) Create(ctx context.Context, req provider.CreatePayoutRequest) (*provider.PayoutResult, error) {
	body := paymentRequest{
		ChannelID:   req.ChannelID,
		SequenceID:  req.SequenceID,
		Amount:      number(req.Amount),
		LocalAmount: number(req.LocalAmount),
		Currency:    req.Currency,
		Country:     req.Country,
		Reason:      req.Reason,
		ForceAccept: req.ForceAccept,
		Sender: senderDTO{
			Name:     req.Sender.Name,
			Country:  req.Sender.Country,
			Phone:    req.Sender.Phone,
			Address:  req.Sender.Address,
			DOB:      req.Sender.DateOfBirth,
			Email:    req.Sender.Email,
			IDType:   req.Sender.IDType,
			IDNumber: req.Sender.IDNumber,
		},
		Destination: destinationDTO(req.Destination),
	}

	var resp paymentResponse
	if err := c.http.Do(ctx, http.MethodPost, "/payments", body, &resp); err != nil {
		return nil, err
	}
	return &provider.PayoutResult{
		ID:        resp.ID,
		Status:    provider.NormalizePayoutStatus(resp.Status),
		RawStatus: resp.Status,
	}, nil
}

func (c *Client) Status(ctx context.Context, id string) (entity.PayoutStatus, error) {
	var resp paymentResponse
	if err := c.http.Do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &resp); err != nil {
		return "", err
	}
	return provider.NormalizePayoutStatus(resp.Status), nil
}

func number(d decimal.Decimal) json.Number {
	if d.IsZero() {
		return ""
	}
	return json.Number(d.String())
}

var (
	_ provider.PayoutCreator  = (*Client)(nil)
	_ provider.RoutingCatalog = (*Client)(nil)
)
