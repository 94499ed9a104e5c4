package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaSink publishes audit events to a Kafka topic. Produce errors are
// logged, not returned: audit delivery must never fail a certificate
// operation that already committed.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *zap.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic, logger: logger}, nil
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.CertificateNumber),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("audit event publish failed",
				zap.String("action", event.Action),
				zap.String("certificate_number", event.CertificateNumber),
				zap.Error(err),
			)
		}
	})
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
