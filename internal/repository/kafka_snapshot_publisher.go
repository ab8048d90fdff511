package repository

import (
	"context"
	"fmt"

	"FeatureSnap/internal/domain/models"
	domrepo "FeatureSnap/internal/domain/repository"
	pkgkafka "FeatureSnap/pkg/kafka"
)

// KafkaSnapshotPublisher emits computed snapshot rows to a Kafka topic for
// downstream decision engines. Messages are keyed by pair/interval so one
// partition sees a series in order.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) PublishBatch(ctx context.Context, rows []models.FeatureSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(rows))
	for i, row := range rows {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(fmt.Sprintf("%s:%s", row.Pair, row.Interval)),
			Value: row,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
