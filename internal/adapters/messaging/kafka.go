package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"

	"github.com/VMAzure/azurenet-engine/pkg/interfaces"
)

// KafkaMessaging реализация MessagingPort с использованием Kafka.
// Движок только публикует: потребителей у него нет.
type KafkaMessaging struct {
	producer *kafka.Producer
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(brokers string) (interfaces.MessagingPort, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":            brokers,
		"client.id":                    "azurenet-engine-producer",
		"acks":                         "all",
		"retries":                      5,
		"retry.backoff.ms":             500,
		"compression.type":             "snappy",
		"linger.ms":                    10,
		"queue.buffering.max.messages": 100000,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	return &KafkaMessaging{producer: producer}, nil
}

// Publish публикует сообщение в указанную тему
func (k *KafkaMessaging) Publish(ctx context.Context, topic string, key string, value []byte) error {
	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            keyBytes,
		Value:          value,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(uuid.New().String())},
			{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))},
		},
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := k.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("ошибка публикации сообщения: %w", err)
	}

	select {
	case e := <-deliveryChan:
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("ошибка доставки сообщения: %w", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close останавливает producer, дожидаясь доставки буфера
func (k *KafkaMessaging) Close() error {
	k.producer.Flush(5000)
	k.producer.Close()
	return nil
}

// NoopMessaging — заглушка для окружений без Kafka
type NoopMessaging struct{}

func NewNoopMessaging() interfaces.MessagingPort { return &NoopMessaging{} }

func (n *NoopMessaging) Publish(_ context.Context, _ string, _ string, _ []byte) error { return nil }

func (n *NoopMessaging) Close() error { return nil }
