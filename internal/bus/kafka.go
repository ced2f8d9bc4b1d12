package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes triage events as JSON to a Kafka topic, keyed by
// chat id so one chat's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for brokers/topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// encodeEvent builds the wire message for event.
func encodeEvent(event TriageEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal triage event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ChatID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Name)},
		},
		Time: event.OccurredAt,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event TriageEvent) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.writer.Topic, err)
	}
	slog.Debug("bus.published", "event", event.Name, "run_id", event.RunID, "topic", p.writer.Topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
