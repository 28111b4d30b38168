// Package sandbox implements deterministic in-process providers for local
// runs and tests. Account 1111111111 pays out, 0000000000 fails.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
)

const (
	SuccessAccount = "1111111111"
	FailureAccount = "0000000000"
)

type transfer struct {
	ref       string
	status    string
	polls     int
	overLimit bool
}

// Wallet is a sandbox FundsMover. Transfers settle after SettleAfter status
// reads; a negative value never settles.
type Wallet struct {
	mu          sync.Mutex
	settleAfter int
	limit       decimal.Decimal
	byToken     map[string]*transfer
	byRef       map[string]*transfer
	moves       int
}

type WalletOption func(*Wallet)

func WithSettleAfter(polls int) WalletOption {
	return func(w *Wallet) { w.settleAfter = polls }
}

// WithLimit rejects transfers above limit.
func WithLimit(limit decimal.Decimal) WalletOption {
	return func(w *Wallet) { w.limit = limit }
}

func NewWallet(opts ...WalletOption) *Wallet {
	w := &Wallet{
		settleAfter: 1,
		byToken:     make(map[string]*transfer),
		byRef:       make(map[string]*transfer),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Wallet) Move(ctx context.Context, req provider.MoveRequest) (*provider.MoveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.WalletHandle == "" || req.DestinationHandle == "" {
		return nil, fmt.Errorf("%w: wallet handles are required", provider.ErrRejected)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", provider.ErrRejected)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.byToken[req.IdempotencyToken]; ok && req.IdempotencyToken != "" {
		return &provider.MoveResult{ReferenceID: t.ref, Status: provider.NormalizeFundsStatus(t.status), RawStatus: t.status}, nil
	}

	w.moves++
	t := &transfer{ref: "sbx_tx_" + uuid.NewString(), status: "queued"}
	if !w.limit.IsZero() && req.Amount.GreaterThan(w.limit) {
		t.overLimit = true
	}
	if req.IdempotencyToken != "" {
		w.byToken[req.IdempotencyToken] = t
	}
	w.byRef[t.ref] = t
	return &provider.MoveResult{ReferenceID: t.ref, Status: provider.NormalizeFundsStatus(t.status), RawStatus: t.status}, nil
}

func (w *Wallet) Status(ctx context.Context, q provider.FundsStatusQuery) (entity.FundsStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.byRef[q.ReferenceID]
	if !ok {
		return "", fmt.Errorf("%w: unknown transaction %s", provider.ErrRejected, q.ReferenceID)
	}
	t.polls++
	if w.settleAfter >= 0 && t.polls > w.settleAfter {
		if t.overLimit {
			t.status = "failed"
		} else {
			t.status = "success"
		}
	}
	return provider.NormalizeFundsStatus(t.status), nil
}

// Moves reports how many distinct transfers were accepted.
func (w *Wallet) Moves() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.moves
}

// Disburser is a sandbox PayoutCreator and RoutingCatalog.
type Disburser struct {
	mu          sync.Mutex
	settleAfter int
	names       map[string]string
	bySequence  map[string]*payment
	byID        map[string]*payment
	creates     int
}

type payment struct {
	id      string
	account string
	status  string
	polls   int
}

type DisburserOption func(*Disburser)

func WithPayoutSettleAfter(polls int) DisburserOption {
	return func(d *Disburser) { d.settleAfter = polls }
}

// WithAccountName makes the bank account lookup return name for account.
func WithAccountName(account, name string) DisburserOption {
	return func(d *Disburser) { d.names[account] = name }
}

func NewDisburser(opts ...DisburserOption) *Disburser {
	d := &Disburser{
		settleAfter: 1,
		names:       make(map[string]string),
		bySequence:  make(map[string]*payment),
		byID:        make(map[string]*payment),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Disburser) Create(ctx context.Context, req provider.CreatePayoutRequest) (*provider.PayoutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ChannelID == "" || req.Destination.NetworkID == "" {
		return nil, fmt.Errorf("%w: channel and network are required", provider.ErrRejected)
	}
	if req.Destination.AccountNumber == "" {
		return nil, fmt.Errorf("%w: destination account is required", provider.ErrRejected)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.bySequence[req.SequenceID]; ok && req.SequenceID != "" {
		return &provider.PayoutResult{ID: p.id, Status: provider.NormalizePayoutStatus(p.status), RawStatus: p.status}, nil
	}

	d.creates++
	p := &payment{id: "sbx_pay_" + uuid.NewString(), account: req.Destination.AccountNumber, status: "created"}
	if req.SequenceID != "" {
		d.bySequence[req.SequenceID] = p
	}
	d.byID[p.id] = p
	return &provider.PayoutResult{ID: p.id, Status: provider.NormalizePayoutStatus(p.status), RawStatus: p.status}, nil
}

func (d *Disburser) Status(ctx context.Context, id string) (entity.PayoutStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: unknown payment %s", provider.ErrRejected, id)
	}
	p.polls++
	if d.settleAfter >= 0 && p.polls > d.settleAfter {
		if p.account == FailureAccount {
			p.status = "failed"
		} else {
			p.status = "completed"
		}
	} else if p.status == "created" {
		p.status = "processing"
	}
	return provider.NormalizePayoutStatus(p.status), nil
}

// Creates reports how many distinct payments were accepted.
func (d *Disburser) Creates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.creates
}

func (d *Disburser) Channels(ctx context.Context, country string) ([]provider.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := strings.ToUpper(country)
	return []provider.Channel{
		{ID: channelID(c, provider.ChannelTypeBank), Country: c, ChannelType: provider.ChannelTypeBank, Status: "active"},
		{ID: channelID(c, provider.ChannelTypeMomo), Country: c, ChannelType: provider.ChannelTypeMomo, Status: "active"},
	}, nil
}

func (d *Disburser) Networks(ctx context.Context, country string) ([]provider.Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := strings.ToUpper(country)
	bank := []string{channelID(c, provider.ChannelTypeBank)}
	momo := []string{channelID(c, provider.ChannelTypeMomo)}
	return []provider.Network{
		{ID: "sbx-" + c + "-044", Name: "Access Bank", Code: "044", Country: c, Status: "active", ChannelIDs: bank, AccountNumberType: "bank"},
		{ID: "sbx-" + c + "-058", Name: "Guaranty Trust Bank", Code: "058", Country: c, Status: "active", ChannelIDs: bank, AccountNumberType: "bank"},
		{ID: "sbx-" + c + "-manual", Name: "Manual Input", Country: c, Status: "active", ChannelIDs: bank, AccountNumberType: "bank"},
		{ID: "sbx-" + c + "-mtn", Name: "MTN Mobile Money", Code: "MTN", Country: c, Status: "active", ChannelIDs: momo, AccountNumberType: "phone"},
	}, nil
}

func (d *Disburser) ResolveBankAccount(ctx context.Context, q provider.AccountLookup) (*provider.AccountDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	name := d.names[q.AccountNumber]
	d.mu.Unlock()

	return &provider.AccountDetails{AccountName: name, AccountNumber: q.AccountNumber}, nil
}

func channelID(country, channelType string) string {
	return "sbx-" + country + "-" + channelType
}
