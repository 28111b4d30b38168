package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrTerminal            = errors.New("payout is in a terminal state")
	ErrInvalidTransition   = errors.New("invalid payout status transition")
	ErrReferenceAlreadySet = errors.New("provider reference already set")
)

type OverallStatus string

const (
	StatusCreated           OverallStatus = "created"
	StatusProviderASettling OverallStatus = "provider_a_settling"
	StatusPayoutProcessing  OverallStatus = "payout_processing"
	StatusCompleted         OverallStatus = "completed"
	StatusFailed            OverallStatus = "failed"
)

// Rank orders statuses along the saga lattice. Failed ranks above every
// non-terminal status because it is absorbing.
func (s OverallStatus) Rank() int {
	switch s {
	case StatusCreated:
		return 0
	case StatusProviderASettling:
		return 1
	case StatusPayoutProcessing:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	default:
		return -1
	}
}

func (s OverallStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FundsStatus is the normalized state of the wallet-to-wallet move.
type FundsStatus string

const (
	FundsNotStarted FundsStatus = "not_started"
	FundsPending    FundsStatus = "pending"
	FundsCompleted  FundsStatus = "completed"
	FundsFailed     FundsStatus = "failed"
)

// PayoutStatus is the normalized state of the disbursement.
type PayoutStatus string

const (
	PayoutNotStarted PayoutStatus = "not_started"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodMobileMoney  Method = "mobile_money"
)

func (m Method) Valid() bool {
	return m == MethodBankTransfer || m == MethodMobileMoney
}

// Beneficiary is the destination snapshot taken when the payout is created.
type Beneficiary struct {
	Name          string `json:"name"`
	Country       string `json:"country"`
	Method        Method `json:"method"`
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	MSISDN        string `json:"msisdn,omitempty"`
}

type PayoutParams struct {
	UserID         string
	IdempotencyKey string
	CorrelationID  string
	SourceID       string
	SourceAmount   decimal.Decimal
	SourceCurrency string
	DestCurrency   string
	Beneficiary    Beneficiary
}

type Payout struct {
	id             uuid.UUID
	correlationID  string
	idempotencyKey string
	userID         string
	sourceID       string
	sourceAmount   decimal.Decimal
	sourceCurrency string
	destCurrency   string
	beneficiary    Beneficiary

	fundsStatus     FundsStatus
	fundsReference  string
	payoutStatus    PayoutStatus
	payoutReference string

	status        OverallStatus
	failureReason string
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

func NewPayout(p PayoutParams) *Payout {
	now := time.Now().UTC()
	return &Payout{
		id:             uuid.New(),
		correlationID:  p.CorrelationID,
		idempotencyKey: p.IdempotencyKey,
		userID:         p.UserID,
		sourceID:       p.SourceID,
		sourceAmount:   p.SourceAmount,
		sourceCurrency: p.SourceCurrency,
		destCurrency:   p.DestCurrency,
		beneficiary:    p.Beneficiary,
		fundsStatus:    FundsNotStarted,
		payoutStatus:   PayoutNotStarted,
		status:         StatusCreated,
		createdAt:      now,
		updatedAt:      now,
	}
}

// PayoutState is the full persisted shape of a payout, used by repositories
// to rebuild the entity.
type PayoutState struct {
	ID              uuid.UUID
	CorrelationID   string
	IdempotencyKey  string
	UserID          string
	SourceID        string
	SourceAmount    decimal.Decimal
	SourceCurrency  string
	DestCurrency    string
	Beneficiary     Beneficiary
	FundsStatus     FundsStatus
	FundsReference  string
	PayoutStatus    PayoutStatus
	PayoutReference string
	Status          OverallStatus
	FailureReason   string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func ReconstructPayout(s PayoutState) *Payout {
	return &Payout{
		id:              s.ID,
		correlationID:   s.CorrelationID,
		idempotencyKey:  s.IdempotencyKey,
		userID:          s.UserID,
		sourceID:        s.SourceID,
		sourceAmount:    s.SourceAmount,
		sourceCurrency:  s.SourceCurrency,
		destCurrency:    s.DestCurrency,
		beneficiary:     s.Beneficiary,
		fundsStatus:     s.FundsStatus,
		fundsReference:  s.FundsReference,
		payoutStatus:    s.PayoutStatus,
		payoutReference: s.PayoutReference,
		status:          s.Status,
		failureReason:   s.FailureReason,
		version:         s.Version,
		createdAt:       s.CreatedAt,
		updatedAt:       s.UpdatedAt,
	}
}

func (p *Payout) State() PayoutState {
	return PayoutState{
		ID:              p.id,
		CorrelationID:   p.correlationID,
		IdempotencyKey:  p.idempotencyKey,
		UserID:          p.userID,
		SourceID:        p.sourceID,
		SourceAmount:    p.sourceAmount,
		SourceCurrency:  p.sourceCurrency,
		DestCurrency:    p.destCurrency,
		Beneficiary:     p.beneficiary,
		FundsStatus:     p.fundsStatus,
		FundsReference:  p.fundsReference,
		PayoutStatus:    p.payoutStatus,
		PayoutReference: p.payoutReference,
		Status:          p.status,
		FailureReason:   p.failureReason,
		Version:         p.version,
		CreatedAt:       p.createdAt,
		UpdatedAt:       p.updatedAt,
	}
}

func (p *Payout) ID() uuid.UUID {
	return p.id
}

func (p *Payout) CorrelationID() string {
	return p.correlationID
}

func (p *Payout) IdempotencyKey() string {
	return p.idempotencyKey
}

func (p *Payout) UserID() string {
	return p.userID
}

func (p *Payout) SourceID() string {
	return p.sourceID
}

func (p *Payout) SourceAmount() decimal.Decimal {
	return p.sourceAmount
}

func (p *Payout) SourceCurrency() string {
	return p.sourceCurrency
}

func (p *Payout) DestCurrency() string {
	return p.destCurrency
}

// Beneficiary returns a copy of the snapshot.
func (p *Payout) Beneficiary() Beneficiary {
	return p.beneficiary
}

func (p *Payout) FundsStatus() FundsStatus {
	return p.fundsStatus
}

func (p *Payout) FundsReference() string {
	return p.fundsReference
}

func (p *Payout) PayoutStatus() PayoutStatus {
	return p.payoutStatus
}

func (p *Payout) PayoutReference() string {
	return p.payoutReference
}

func (p *Payout) Status() OverallStatus {
	return p.status
}

func (p *Payout) FailureReason() string {
	return p.failureReason
}

func (p *Payout) Version() int64 {
	return p.version
}

func (p *Payout) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Payout) UpdatedAt() time.Time {
	return p.updatedAt
}

// SetVersion is called by repositories after a successful write.
func (p *Payout) SetVersion(v int64) {
	p.version = v
}

// MarkFundsMoving records the accepted wallet move and starts settlement.
func (p *Payout) MarkFundsMoving(reference string) error {
	if err := p.expect(StatusCreated); err != nil {
		return err
	}
	if reference == "" {
		return fmt.Errorf("%w: empty funds reference", ErrInvalidTransition)
	}
	if p.fundsReference != "" && p.fundsReference != reference {
		return ErrReferenceAlreadySet
	}
	p.fundsReference = reference
	p.fundsStatus = FundsPending
	p.advance(StatusProviderASettling)
	return nil
}

func (p *Payout) MarkFundsSettled() error {
	if err := p.expect(StatusProviderASettling); err != nil {
		return err
	}
	p.fundsStatus = FundsCompleted
	p.advance(StatusPayoutProcessing)
	return nil
}

// RecordPayoutCreated stores the disbursement reference. The overall status
// stays payout_processing until the disbursement settles.
func (p *Payout) RecordPayoutCreated(reference string) error {
	if err := p.expect(StatusPayoutProcessing); err != nil {
		return err
	}
	if reference == "" {
		return fmt.Errorf("%w: empty payout reference", ErrInvalidTransition)
	}
	if p.payoutReference != "" {
		return ErrReferenceAlreadySet
	}
	p.payoutReference = reference
	p.payoutStatus = PayoutProcessing
	p.touch()
	return nil
}

func (p *Payout) Complete() error {
	if err := p.expect(StatusPayoutProcessing); err != nil {
		return err
	}
	if p.payoutReference == "" || p.fundsStatus != FundsCompleted {
		return fmt.Errorf("%w: payout has not been submitted", ErrInvalidTransition)
	}
	p.payoutStatus = PayoutCompleted
	p.advance(StatusCompleted)
	return nil
}

// Fail moves the payout to failed and marks the sub-status of the step that
// was in progress.
func (p *Payout) Fail(reason string) error {
	if p.status.IsTerminal() {
		return ErrTerminal
	}
	switch p.status {
	case StatusCreated, StatusProviderASettling:
		p.fundsStatus = FundsFailed
	case StatusPayoutProcessing:
		p.payoutStatus = PayoutFailed
	}
	p.failureReason = reason
	p.advance(StatusFailed)
	return nil
}

func (p *Payout) expect(s OverallStatus) error {
	if p.status.IsTerminal() {
		return ErrTerminal
	}
	if p.status != s {
		return fmt.Errorf("%w: expected %s, got %s", ErrInvalidTransition, s, p.status)
	}
	return nil
}

func (p *Payout) advance(s OverallStatus) {
	p.status = s
	p.touch()
}

func (p *Payout) touch() {
	p.updatedAt = time.Now().UTC()
}
