package event

import (
	"context"
	"time"
)

const TypeStatusChanged = "payout.status_changed"

// PayoutEvent is emitted after every persisted payout checkpoint.
type PayoutEvent struct {
	Type          string    `json:"type"`
	PayoutID      string    `json:"payoutId"`
	CorrelationID string    `json:"correlationId"`
	UserID        string    `json:"userId"`
	Status        string    `json:"overallStatus"`
	FundsStatus   string    `json:"providerAStatus"`
	PayoutStatus  string    `json:"providerBStatus"`
	FailureReason string    `json:"failureReason,omitempty"`
	Version       int64     `json:"version"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e PayoutEvent) error
}
