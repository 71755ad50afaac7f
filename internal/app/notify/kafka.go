package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"

	"github.com/tomkralidis/gocsw/pkg/common/logger"
)

var _ Notifier = (*KafkaNotifier)(nil)

// KafkaNotifier publishes record change notifications to a Kafka topic,
// keyed by record identifier so changes to one record stay ordered.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// KafkaConfig contains the settings needed to connect the notifier.
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
}

// NewKafkaNotifier connects a notifier to Kafka, retrying with exponential
// backoff while the brokers come up.
func NewKafkaNotifier(cfg KafkaConfig, log *logger.Logger) (*KafkaNotifier, error) {
	config := sarama.NewConfig()
	config.ClientID = cfg.ClientID

	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner

	config.Version = sarama.V3_6_0_0

	var producer sarama.SyncProducer

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second

	operation := func() error {
		var err error
		producer, err = sarama.NewSyncProducer(cfg.Brokers, config)
		if err != nil {
			return fmt.Errorf("creating producer: %w", err)
		}
		return nil
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return nil, fmt.Errorf("failed to connect notifier after retries: %w", err)
	}

	return &KafkaNotifier{producer: producer, topic: cfg.Topic, log: log}, nil
}

// RecordChanged publishes one change notification.
func (n *KafkaNotifier) RecordChanged(ctx context.Context, change RecordChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change notification: %w", err)
	}

	partition, offset, err := n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(change.Identifier),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish change notification: %w", err)
	}

	n.log.Debug(ctx, "published record change",
		"identifier", change.Identifier,
		"change_type", change.Type,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close shuts down the underlying producer.
func (n *KafkaNotifier) Close() error { return n.producer.Close() }
