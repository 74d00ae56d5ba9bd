package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is what the service layer depends on. A nil publisher
// means eventing is disabled.
type Publisher interface {
	PublishTransactionAuthorized(ctx context.Context, event TransactionAuthorized) error
}

// Producer writes validated events to a single Kafka topic.
type Producer struct {
	w         *kafka.Writer
	validator *Validator
	log       *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) (*Producer, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		validator: v,
		log:       log,
	}, nil
}

func (p *Producer) PublishTransactionAuthorized(ctx context.Context, event TransactionAuthorized) error {
	if err := p.validator.Validate(event); err != nil {
		return fmt.Errorf("event failed schema validation: %w", err)
	}
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BuyOrder),
		Value: b,
		Time:  time.Now(),
	})
	if err != nil {
		return err
	}
	p.log.Debug("event published",
		zap.String("buy_order", event.BuyOrder),
		zap.String("transaction_id", event.TransactionID))
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }
