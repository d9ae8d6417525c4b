package outputs

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

// KafkaSink sends one message per run, keyed by date, carrying the snapshot
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducer creates a sync producer that waits for all replicas
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 0
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return producer, nil
}

// NewKafkaSink creates a sink writing to topic
func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Write(_ context.Context, d *Digest) (string, error) {
	if k.producer == nil {
		return "", fmt.Errorf("%w: KAFKA_BROKERS missing", ErrNotConfigured)
	}

	raw, err := SnapshotJSON(d)
	if err != nil {
		return "", err
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(d.Date()),
		Value: sarama.ByteEncoder(raw),
	})
	if err != nil {
		return "", fmt.Errorf("kafka send: %w", err)
	}
	return fmt.Sprintf("kafka://%s/%d/%d", k.topic, partition, offset), nil
}
