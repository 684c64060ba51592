// Package kafka publishes scored facility records to an optional sink topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/config"
	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

// Writer produces scored facility records to a Kafka topic. It implements
// pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and publishes the scored population in a single
// WriteMessages call.
func (w *Writer) Publish(ctx context.Context, scored []domain.ScoredFacility) error {
	if len(scored) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(scored))
	for i := range scored {
		msg, err := serializeToMessage(scored[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish scored facilities: %w", err)
	}
	w.logger.Info("published scored facilities", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ScoredFacility into a Kafka message keyed by
// facility ID. The run timestamp travels in a header rather than the body so
// downstream consumers comparing payloads across runs see stable bytes.
func serializeToMessage(f domain.ScoredFacility) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scored facility: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(f.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "anomaly", Value: []byte(strconv.FormatBool(f.Anomaly))},
			{Key: "processed_at", Value: []byte(f.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
