// Package kafka publishes document events to a Kafka topic.
package kafka

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/docscan/internal/queue"
)

const flushTimeoutMs = 5000

var _ queue.Publisher = (*Producer)(nil)

type Producer struct {
	producer *kafka.Producer
	topic    string
}

func NewProducer(brokers, topic string) (*Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{producer: p, topic: topic}, nil
}

// Publish waits for the delivery report of the event.
func (p *Producer) Publish(ctx context.Context, event queue.Event) error {
	value, err := event.MarshalBinary()
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.DocumentID),
		Value:          value,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(event.Type)}},
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce %s: %w", event.Type, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver %s: %w", event.Type, m.TopicPartition.Error)
		}
	}

	return nil
}

func (p *Producer) Close() error {
	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		logrus.Warnf("kafka producer closed with %d undelivered events", remaining)
	}
	p.producer.Close()
	return nil
}
