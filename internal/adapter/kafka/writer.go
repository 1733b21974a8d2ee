package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/island-resilience-service/internal/config"
	"github.com/couchcryptid/island-resilience-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes evaluated region statuses to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// RegionMessage is the published value: one region's status within an evaluation.
type RegionMessage struct {
	domain.RegionStatus
	Severity      int       `json:"severity"`
	SeverityLabel string    `json:"severity_label"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// LoadBatch publishes every region of the evaluation in a single
// WriteMessages call. Messages are keyed by region id so a region's history
// stays on one partition.
func (w *Writer) LoadBatch(ctx context.Context, eval domain.Evaluation) error {
	if len(eval.Regions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(eval.Regions))
	for i := range eval.Regions {
		msg, err := serializeToMessage(eval, eval.Regions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish evaluation: %w", err)
	}
	w.logger.Debug("evaluation published", "regions", len(msgs), "severity", eval.Severity)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one region status into a Kafka message.
func serializeToMessage(eval domain.Evaluation, status domain.RegionStatus) (kafkago.Message, error) {
	data, err := json.Marshal(RegionMessage{
		RegionStatus:  status,
		Severity:      eval.Severity,
		SeverityLabel: eval.SeverityLabel,
		EvaluatedAt:   eval.EvaluatedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region status: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(status.RegionID),
		Value: data,
		Time:  eval.EvaluatedAt,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(status.Category)},
			{Key: "severity", Value: []byte(strconv.Itoa(eval.Severity))},
			{Key: "evaluated_at", Value: []byte(eval.EvaluatedAt.Format(time.RFC3339))},
		},
	}, nil
}
