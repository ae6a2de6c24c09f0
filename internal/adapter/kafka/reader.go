package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/forecast-hub-etl/internal/config"
	"github.com/couchcryptid/forecast-hub-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes messages from the source topic as part of a consumer group.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a Kafka consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize messages. The first fetch blocks until
// a message arrives or the context is cancelled; subsequent fetches stop at
// the flush interval so a partially filled batch still makes progress.
// Offsets are committed via the per-message Commit callback, not on fetch,
// so a crash mid-batch redelivers unprocessed messages.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawSubmission, error) {
	batch := make([]domain.RawSubmission, 0, batchSize)

	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
			return batch, nil
		}
		return nil, err
	}
	batch = append(batch, r.mapMessageToRawSubmission(msg))

	for len(batch) < batchSize {
		fetchCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
		msg, err := r.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		batch = append(batch, r.mapMessageToRawSubmission(msg))
	}

	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawSubmission converts a Kafka message into a RawSubmission
// with a commit callback bound to this reader's consumer group.
func (r *Reader) mapMessageToRawSubmission(msg kafkago.Message) domain.RawSubmission {
	raw := mapMessageToRawSubmission(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func mapMessageToRawSubmission(msg kafkago.Message) domain.RawSubmission {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawSubmission{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
