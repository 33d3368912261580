package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicPaymentUnfulfilled = "payment.unfulfilled"
	TopicOrderCompleted     = "order.completed"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Topics struct {
	PaymentUnfulfilled string
	OrderCompleted     string
}

func DefaultTopics() Topics {
	return Topics{
		PaymentUnfulfilled: TopicPaymentUnfulfilled,
		OrderCompleted:     TopicOrderCompleted,
	}
}

type KafkaPublisher struct {
	writer  messageWriter
	topics  Topics
	timeout time.Duration
}

// NewKafkaPublisher writes to brokers. The topic is chosen per message.
func NewKafkaPublisher(topics Topics, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
	}
	return &KafkaPublisher{writer: w, topics: topics, timeout: 5 * time.Second}
}

func (p *KafkaPublisher) PaymentUnfulfilled(ctx context.Context, ev PaymentUnfulfilled) error {
	return p.publish(ctx, p.topics.PaymentUnfulfilled, EventPaymentUnfulfilled, ev.TransactionID, ev)
}

func (p *KafkaPublisher) OrderCompleted(ctx context.Context, ev OrderCompleted) error {
	return p.publish(ctx, p.topics.OrderCompleted, EventOrderCompleted, ev.TransactionID, ev)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key), // transaction id keeps a transaction's events ordered
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}
