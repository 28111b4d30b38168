// Package provider defines the capabilities the payout saga consumes from the
// wallet provider and the disbursement provider.
package provider

//go:generate mockgen -source=provider.go -destination=mocks/provider.go -package=mocks

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
)

var (
	// ErrRejected means the provider answered and refused the request.
	ErrRejected = errors.New("provider rejected request")
	// ErrUnavailable means the provider could not be reached or answered with a server error.
	ErrUnavailable = errors.New("provider unavailable")
)

const (
	ChannelTypeBank = "bank"
	ChannelTypeMomo = "momo"
)

// ChannelTypeFor maps a beneficiary method to the disbursement channel type.
func ChannelTypeFor(m entity.Method) string {
	if m == entity.MethodMobileMoney {
		return ChannelTypeMomo
	}
	return ChannelTypeBank
}

type MoveRequest struct {
	Amount            decimal.Decimal
	Currency          string
	WalletHandle      string
	WalletCredential  string
	SourceID          string
	DestinationHandle string
	IdempotencyToken  string
	Descriptor        string
}

type MoveResult struct {
	ReferenceID string
	Status      entity.FundsStatus
	RawStatus   string
}

type FundsStatusQuery struct {
	ReferenceID      string
	WalletHandle     string
	WalletCredential string
}

// FundsMover moves funds from the user's wallet to the company wallet.
type FundsMover interface {
	Move(ctx context.Context, req MoveRequest) (*MoveResult, error)
	Status(ctx context.Context, q FundsStatusQuery) (entity.FundsStatus, error)
}

type Sender struct {
	Name        string
	Country     string
	Phone       string
	Address     string
	DateOfBirth string
	Email       string
	IDType      string
	IDNumber    string
}

type Destination struct {
	AccountName   string
	AccountNumber string
	AccountType   string
	NetworkID     string
}

type CreatePayoutRequest struct {
	ChannelID   string
	SequenceID  string
	Amount      decimal.Decimal
	LocalAmount decimal.Decimal
	Currency    string
	Country     string
	Reason      string
	ForceAccept bool
	Sender      Sender
	Destination Destination
}

type PayoutResult struct {
	ID        string
	Status    entity.PayoutStatus
	RawStatus string
}

// PayoutCreator submits and tracks disbursements to external beneficiaries.
type PayoutCreator interface {
	Create(ctx context.Context, req CreatePayoutRequest) (*PayoutResult, error)
	Status(ctx context.Context, id string) (entity.PayoutStatus, error)
}

type Channel struct {
	ID          string
	Country     string
	ChannelType string
	Status      string
}

type Network struct {
	ID                string
	Name              string
	Code              string
	Country           string
	Status            string
	ChannelIDs        []string
	AccountNumberType string
}

type AccountLookup struct {
	Country       string
	NetworkID     string
	AccountNumber string
}

type AccountDetails struct {
	AccountName   string
	AccountNumber string
	BankName      string
}

// RoutingCatalog exposes the disbursement provider's addressing listings.
type RoutingCatalog interface {
	Channels(ctx context.Context, country string) ([]Channel, error)
	Networks(ctx context.Context, country string) ([]Network, error)
	ResolveBankAccount(ctx context.Context, q AccountLookup) (*AccountDetails, error)
}

// NormalizeFundsStatus folds the wallet provider's status vocabulary into
// pending/completed/failed. Unknown and empty values are pending.
func NormalizeFundsStatus(raw string) entity.FundsStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "completed":
		return entity.FundsCompleted
	case "failed", "reversed", "canceled", "cancelled":
		return entity.FundsFailed
	default:
		return entity.FundsPending
	}
}

// NormalizePayoutStatus folds the disbursement provider's status vocabulary
// into processing/completed/failed.
func NormalizePayoutStatus(raw string) entity.PayoutStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed":
		return entity.PayoutCompleted
	case "failed", "rejected", "cancelled", "canceled", "expired":
		return entity.PayoutFailed
	default:
		return entity.PayoutProcessing
	}
}
