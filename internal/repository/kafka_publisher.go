package repository

import (
	"context"
	"fmt"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/export"
	pkgkafka "VariantMap/pkg/kafka"
)

// BatchPublisher is the slice of the kafka producer the publisher needs.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaMapPublisher publishes map rows keyed by variant and day records
// keyed by date. Every message carries the run id.
type KafkaMapPublisher struct {
	producer  BatchPublisher
	mapTopic  string
	daysTopic string
}

var _ domrepo.MapSink = (*KafkaMapPublisher)(nil)

// NewKafkaMapPublisher creates the publisher. An empty daysTopic skips day records.
func NewKafkaMapPublisher(producer BatchPublisher, mapTopic, daysTopic string) *KafkaMapPublisher {
	return &KafkaMapPublisher{producer: producer, mapTopic: mapTopic, daysTopic: daysTopic}
}

type mapMessage struct {
	RunID string `json:"run_id"`
	models.ProbabilityMapEntry
}

type dayMessage struct {
	RunID string `json:"run_id"`
	models.DayRecord
}

func (p *KafkaMapPublisher) Name() string { return "kafka" }

func (p *KafkaMapPublisher) Write(ctx context.Context, run *models.RunResult) error {
	snap := run.Snapshot()

	rows := export.RoundMap(snap.Map)
	msgs := make([]pkgkafka.Message, len(rows))
	for i, e := range rows {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(e.Variant),
			Value: mapMessage{RunID: snap.RunID, ProbabilityMapEntry: e},
		}
	}
	if err := p.producer.PublishBatch(ctx, p.mapTopic, msgs); err != nil {
		return fmt.Errorf("publish map: %w", err)
	}

	if p.daysTopic == "" {
		return nil
	}
	msgs = make([]pkgkafka.Message, len(snap.Days))
	for i, d := range snap.Days {
		d.AsiaRange = export.Round(d.AsiaRange)
		d.MedianPenetration = export.RoundPtr(d.MedianPenetration)
		msgs[i] = pkgkafka.Message{
			Key:   []byte(d.Date),
			Value: dayMessage{RunID: snap.RunID, DayRecord: d},
		}
	}
	if err := p.producer.PublishBatch(ctx, p.daysTopic, msgs); err != nil {
		return fmt.Errorf("publish days: %w", err)
	}
	return nil
}

// Close is a no-op; the producer is owned by the caller.
func (p *KafkaMapPublisher) Close() error { return nil }
