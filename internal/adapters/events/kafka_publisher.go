package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaTopics maps event families to topics. Events are routed by the prefix before the
// first dot, so "order.paid" goes to Orders.
type KafkaTopics struct {
	Orders string
	Users  string
}

func (t KafkaTopics) topicFor(eventType string) string {
	family, _, _ := strings.Cut(eventType, ".")
	switch family {
	case "order":
		if t.Orders != "" {
			return t.Orders
		}
	case "user":
		if t.Users != "" {
			return t.Users
		}
	}
	return "storefront." + eventType
}

// KafkaPublisher writes outbox events to Kafka keyed by partition key, so all events for
// one order land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
	topics KafkaTopics
}

func NewKafkaPublisher(brokers []string, topics KafkaTopics) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
		topics: topics,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topics.topicFor(eventType),
		Key:   []byte(partitionKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
		Time: time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
