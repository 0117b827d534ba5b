// Package events records TPP request events. Recording is best effort: a
// failed publish is logged and never fails the request being recorded.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/psd2hub/xs2a-engine/internal/core/ports"
)

type KafkaRecorder struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaRecorder(brokers []string, topic string, logger *slog.Logger) *KafkaRecorder {
	return &KafkaRecorder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		},
		logger: logger,
	}
}

func (r *KafkaRecorder) Record(ctx context.Context, event ports.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal event", "type", string(event.Type), "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(event.ResourceID),
		Value: value,
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.logger.Error("failed to record event", "type", string(event.Type), "error", err)
	}
}

func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
