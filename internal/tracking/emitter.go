package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// LogEmitter writes events to the structured log.
type LogEmitter struct{}

func (LogEmitter) Emit(ctx context.Context, event Event) error {
	slog.InfoContext(ctx, "[Tracking] "+event.Name,
		"event_id", event.ID,
		"learner_id", event.LearnerID,
		"course_id", event.CourseID,
		"block_id", event.BlockID,
		"label", event.Label,
		"completion_percent", event.CompletionPercent,
		"run_id", event.RunID,
	)
	return nil
}

// KafkaEmitter publishes events as JSON, keyed by learner so one learner's
// events stay ordered within a partition.
type KafkaEmitter struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaEmitter wraps an existing producer.
func NewKafkaEmitter(producer sarama.SyncProducer, topic string) *KafkaEmitter {
	return &KafkaEmitter{producer: producer, topic: topic}
}

// NewKafkaProducer builds a synchronous producer with acknowledgements from
// all in-sync replicas.
func NewKafkaProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return producer, nil
}

func (e *KafkaEmitter) Emit(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: e.topic,
		Key:   sarama.StringEncoder(event.LearnerID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_name"), Value: []byte(event.Name)},
		},
	}

	partition, offset, err := e.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send event %s to %s: %w", event.Name, e.topic, err)
	}

	slog.Debug("[KafkaEmitter] Event published",
		"name", event.Name,
		"topic", e.topic,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close releases the producer.
func (e *KafkaEmitter) Close() error {
	return e.producer.Close()
}
