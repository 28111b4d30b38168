// Package events publishes payout lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/event"
)

const DefaultTopic = "payout.events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes events keyed by payout id, so all events of one payout land
// on the same partition in checkpoint order.
type Kafka struct {
	w   messageWriter
	log *zap.Logger
}

func NewKafka(brokers []string, topic string, log *zap.Logger) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		ErrorLogger:  kafka.LoggerFunc(log.Sugar().Errorf),
	}
	return &Kafka{w: w, log: log}
}

func (k *Kafka) Publish(ctx context.Context, e event.PayoutEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.PayoutID),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
			{Key: "correlation_id", Value: []byte(e.CorrelationID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s event: %w", e.Type, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, event.PayoutEvent) error { return nil }

// Log writes events to the logger. Used when no broker is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Publish(_ context.Context, e event.PayoutEvent) error {
	l.log.Debug("payout event",
		zap.String("type", e.Type),
		zap.String("payout_id", e.PayoutID),
		zap.String("correlation_id", e.CorrelationID),
		zap.String("status", e.Status),
		zap.Int64("version", e.Version),
	)
	return nil
}
