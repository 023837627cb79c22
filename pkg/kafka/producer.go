package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/rowstack/regatta/internal/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// traceHeaders carries the active trace context on the outgoing message so
// downstream consumers join the ingestion trace.
func traceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	if parent := tracing.GetTraceParent(ctx); parent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(parent)})
	}
	if state := tracing.GetTraceState(ctx); state != "" {
		headers = append(headers, kafka.Header{Key: "tracestate", Value: []byte(state)})
	}
	return headers
}

// RaceEvent represents an event about a canonical race
type RaceEvent struct {
	EventType  string          `json:"event_type"` // created, updated, merged
	RaceID     string          `json:"race_id"`
	Datasource string          `json:"datasource"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ParticipantEvent represents an event about a race participant
type ParticipantEvent struct {
	EventType     string          `json:"event_type"` // created, updated
	ParticipantID string          `json:"participant_id"`
	RaceID        string          `json:"race_id"`
	ClubID        string          `json:"club_id"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// PublishRaceEvent publishes a race event to Kafka
func (p *Producer) PublishRaceEvent(ctx context.Context, event *RaceEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRaceEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RaceID),
		Value: data,
		Headers: traceHeaders(ctx, []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "datasource", Value: []byte(event.Datasource)},
		}),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish race event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"race_id":    event.RaceID,
	}).Debug("Published race event")

	return nil
}

// PublishParticipantEvent publishes a participant event to Kafka
func (p *Producer) PublishParticipantEvent(ctx context.Context, event *ParticipantEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishParticipantEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ParticipantID),
		Value: data,
		Headers: traceHeaders(ctx, []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "race_id", Value: []byte(event.RaceID)},
		}),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish participant event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":     event.EventType,
		"participant_id": event.ParticipantID,
		"race_id":        event.RaceID,
	}).Debug("Published participant event")

	return nil
}

// PublishRaceEvents publishes multiple race events in a batch
func (p *Producer) PublishRaceEvents(ctx context.Context, events []*RaceEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRaceEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.RaceID),
			Value: data,
			Headers: traceHeaders(ctx, []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "datasource", Value: []byte(event.Datasource)},
				{Key: "schema_version", Value: []byte("1.0")},
			}),
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish race events batch")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published race events batch")

	return nil
}
