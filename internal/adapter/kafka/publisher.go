package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fasalneeti/yield-service/internal/domain"
)

// EventType is the event_type header on every published prediction.
const EventType = "prediction.created"

// Publisher publishes completed predictions to a Kafka topic.
// It implements prediction.Recorder.
type Publisher struct {
	writer  *kafkago.Writer
	brokers []string
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the prediction topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		// One message per request; don't wait for a batch to fill.
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, brokers: brokers, logger: logger}
}

// Name labels this sink in metrics and logs.
func (p *Publisher) Name() string { return "kafka" }

// Record publishes p keyed by owner so an owner's predictions stay ordered.
func (p *Publisher) Record(ctx context.Context, pred domain.Prediction) error {
	msg, err := serializeToMessage(pred)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish prediction %s: %w", pred.ID, err)
	}
	p.logger.Debug("prediction published", "prediction_id", pred.ID, "topic", p.writer.Topic)
	return nil
}

// Ping dials the first reachable broker.
func (p *Publisher) Ping(ctx context.Context) error {
	var errs []error
	for _, b := range p.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", errors.Join(errs...))
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Prediction into a Kafka message.
func serializeToMessage(pred domain.Prediction) (kafkago.Message, error) {
	data, err := json.Marshal(pred)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(pred.OwnerID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "prediction_id", Value: []byte(pred.ID)},
			{Key: "tier", Value: []byte(pred.Result.Tier)},
			{Key: "created_at", Value: []byte(pred.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
