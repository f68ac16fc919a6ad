package license

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Event types published to the license topic.
const (
	EventLicenseCreated   = "license.created"
	EventDeviceRegistered = "license.device_registered"
	EventLicenseExpired   = "license.expired"
)

// Event is the wire shape of a license lifecycle notification. Billing and
// support tooling consume these downstream.
type Event struct {
	Type       string    `json:"type"`
	UID        string    `json:"uid"`
	Plan       string    `json:"plan,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher emits license lifecycle events. Publishing is best effort:
// the license operation itself never fails on a broker error.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
	Close()
}

// KafkaEventPublisher produces events with franz-go. Records are keyed by uid
// so per-user ordering is preserved within a partition.
type KafkaEventPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaEventPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaEventPublisher{client: client, topic: topic, logger: logger}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal license event", "type", event.Type, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.UID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("publish license event", "type", event.Type, "uid", event.UID, "error", err)
		}
	})
}

func (p *KafkaEventPublisher) Close() {
	p.client.Close()
}

// NoopEventPublisher is used when Kafka is not configured.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, Event) {}

func (NoopEventPublisher) Close() {}
